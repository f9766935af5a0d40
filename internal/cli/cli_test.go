package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/tables"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
)

var sessionPattern = regexp.MustCompile(`\(session ([0-9a-f-]{36})\)`)

type testEnv struct {
	dir    string
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RECONCILE_MATCH_MODE", "")

	dir := t.TempDir()
	return &testEnv{dir: dir, dbPath: filepath.Join(dir, "cli.db")}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(e.dir, "missing.yaml"), "--db", e.dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sessionFrom(t *testing.T, output string) string {
	t.Helper()
	m := sessionPattern.FindStringSubmatch(output)
	require.Len(t, m, 2, "no session id in output:\n%s", output)
	return m[1]
}

const (
	matchedTransactions = "business_name,total,date\nChipotle,15.00,2023-01-02\nStarbucks,4.50,2023-01-03\n"
	matchedProofs       = "business_name,total,date\nChipotle,14.50,2023-01-02\nStarbucks,4.50,2023-01-03\n"
)

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "reconcile "+Version)
}

func TestValidateCommand_AllMatched(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", matchedTransactions)
	proofs := env.writeFile(t, "proofs.csv", matchedProofs)

	out, err := env.run(t, "validate", "-t", txns, "-p", proofs, "--name", "January")

	require.NoError(t, err)
	assert.NotEmpty(t, sessionFrom(t, out))
	assert.Contains(t, out, "Discrepancies:")
	assert.Contains(t, out, "delta 0.50")
	assert.Contains(t, out, "Validated=1")
	assert.Contains(t, out, advisor.AllClearMessage)
}

func TestValidateCommand_NoAdvisorConfigured(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", "business_name,total,date\nTxnA,12.30,2023-01-01\n")
	proofs := env.writeFile(t, "proofs.csv", "business_name,total,date\nProofA,12.30,2023-01-01\n")

	out, err := env.run(t, "validate", "-t", txns, "-p", proofs)

	require.NoError(t, err)
	assert.Contains(t, out, "Unmatched transactions:")
	assert.Contains(t, out, "txna")
	assert.Contains(t, out, "no recommendation advisor is configured")
}

func TestValidateCommand_RequiresATable(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "validate")

	assert.ErrorContains(t, err, "--transactions or --proofs")
}

func TestValidateCommand_SchemaMismatch(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", "business_name,amount\nChipotle,15.00\n")

	_, err := env.run(t, "validate", "-t", txns)

	assert.ErrorContains(t, err, "total")
}

func TestValidateCommand_UnknownMatchMode(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("RECONCILE_MATCH_MODE", "exlusive")
	txns := env.writeFile(t, "txns.csv", matchedTransactions)

	_, err := env.run(t, "validate", "-t", txns)

	assert.ErrorContains(t, err, "unknown match mode")
}

func TestValidateCommand_ReusesSession(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", matchedTransactions)
	proofs := env.writeFile(t, "proofs.csv", matchedProofs)

	out, err := env.run(t, "validate", "-t", txns, "-p", proofs)
	require.NoError(t, err)
	id := sessionFrom(t, out)

	// Only proofs given: transactions come from the session
	out, err = env.run(t, "validate", "-p", proofs, "--session", id)
	require.NoError(t, err)
	assert.Equal(t, id, sessionFrom(t, out))
	assert.Contains(t, out, "Validated=1")

	out, err = env.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "1 of 1 sessions")

	out, err = env.run(t, "runs", "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "completed")
}

func TestAcceptCommand(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", matchedTransactions)
	proofs := env.writeFile(t, "proofs.csv", matchedProofs)

	out, err := env.run(t, "validate", "-t", txns, "-p", proofs)
	require.NoError(t, err)
	id := sessionFrom(t, out)

	t.Run("out of range index", func(t *testing.T) {
		_, err := env.run(t, "accept", "--session", id, "0")
		assert.ErrorContains(t, err, "invalid recommendation index")
	})

	t.Run("non-numeric index", func(t *testing.T) {
		_, err := env.run(t, "accept", "--session", id, "first")
		assert.ErrorContains(t, err, `invalid index "first"`)
	})

	t.Run("session is required", func(t *testing.T) {
		_, err := env.run(t, "accept", "0")
		assert.Error(t, err)
	})
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	txns := env.writeFile(t, "txns.csv", matchedTransactions+"Target,20.00,2023-01-05\n")
	proofs := env.writeFile(t, "proofs.csv", matchedProofs)

	out, err := env.run(t, "validate", "-t", txns, "-p", proofs)
	require.NoError(t, err)
	id := sessionFrom(t, out)

	t.Run("workbook", func(t *testing.T) {
		path := filepath.Join(env.dir, "report.xlsx")
		_, err := env.run(t, "export", "--session", id, "--out", path)
		require.NoError(t, err)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(tables.SheetDiscrepancies)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("unmatched transactions as csv", func(t *testing.T) {
		path := filepath.Join(env.dir, "unmatched.csv")
		_, err := env.run(t, "export", "--session", id, "--out", path)
		require.NoError(t, err)

		rows, err := tables.Load(path, tables.TableTransactions)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "target", rows[0].BusinessName)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := env.run(t, "export", "--session", id, "--out", filepath.Join(env.dir, "x.csv"), "--table", "nope")
		assert.ErrorContains(t, err, `unknown table "nope"`)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.run(t, "export", "--session", "missing", "--out", filepath.Join(env.dir, "y.xlsx"))
		assert.Error(t, err)
	})
}
