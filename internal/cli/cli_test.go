package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"l10n-phrasebook/internal/phrasebook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `Localization {
	en-us {
		Greeting = Hello <<1>>
		Farewell = Goodbye
	}
	fr-fr {
		Greeting = Bonjour <<1>>
	}
}
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strings.cfg"), []byte(sample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Greeting = ignored"), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexCommand_Text(t *testing.T) {
	dir := writeSample(t)

	out, err := run(t, "index", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Greeting\n  en-us: Hello <<1>>\n  fr-fr: Bonjour <<1>>")
	assert.Contains(t, out, "Farewell\n  en-us: Goodbye")
	assert.NotContains(t, out, "ignored")
}

func TestIndexCommand_BraceOnOwnLine(t *testing.T) {
	dir := t.TempDir()
	src := "Localization\n{\n\ten-us\n\t{\n\t\tGreeting = Hello\n\t}\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strings.cfg"), []byte(src), 0644))

	t.Setenv("BLANK_LABEL_KEEPS_NAME", "")
	out, err := run(t, "index", dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	t.Setenv("BLANK_LABEL_KEEPS_NAME", "true")
	out, err = run(t, "index", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Greeting\n  en-us: Hello")
}

func TestIndexCommand_JSON(t *testing.T) {
	dir := writeSample(t)

	out, err := run(t, "index", "--format", "json", dir)
	require.NoError(t, err)

	var phrases []phrasebook.Phrase
	require.NoError(t, json.Unmarshal([]byte(out), &phrases))
	require.Len(t, phrases, 2)
	assert.Equal(t, "Farewell", phrases[0].Name)
	assert.Equal(t, "Greeting", phrases[1].Name)
	assert.Len(t, phrases[1].Versions, 2)
}

func TestIndexCommand_YAML(t *testing.T) {
	dir := writeSample(t)

	out, err := run(t, "index", "--format", "yaml", dir)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Farewell", decoded[0]["name"])
}

func TestIndexCommand_TSV(t *testing.T) {
	dir := writeSample(t)

	out, err := run(t, "index", "--format", "tsv", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "name\tlanguage"))
	assert.True(t, strings.HasPrefix(lines[1], "Farewell\ten-us\t\tfalse\tGoodbye\t"))
}

func TestIndexCommand_UnknownFormat(t *testing.T) {
	dir := writeSample(t)

	_, err := run(t, "index", "--format", "xml", dir)
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestIndexCommand_MissingDirectory(t *testing.T) {
	_, err := run(t, "index", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLookupCommand(t *testing.T) {
	dir := writeSample(t)

	out, err := run(t, "lookup", dir, "say Greeting now", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "Greeting [4,12) instances=1")
	assert.Contains(t, out, "en-us: Hello <<1>>")
	assert.Contains(t, out, "strings.cfg:3:")

	out, err = run(t, "lookup", dir, "say Greeting now", "1")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "lookup", dir, "say Greeting now", "x")
	assert.ErrorContains(t, err, "invalid offset")
}

func TestAnswer(t *testing.T) {
	dir := writeSample(t)
	idx := phrasebook.New()
	require.NoError(t, idx.AddFile(context.Background(), filepath.Join(dir, "strings.cfg")))
	idx.Load(context.Background(), func(context.Context) ([]string, error) { return nil, nil })

	session := idx.Open()
	defer session.Close()

	var out bytes.Buffer
	require.NoError(t, answer(context.Background(), session, &out, "2 Farewell", formatText))
	assert.Contains(t, out.String(), "Farewell [0,8) instances=1")

	out.Reset()
	require.NoError(t, answer(context.Background(), session, &out, "0 nothing here", formatText))
	assert.Equal(t, "no match\n", out.String())

	assert.Error(t, answer(context.Background(), session, &out, "Farewell", formatText))
	assert.Error(t, answer(context.Background(), session, &out, "x Farewell", formatText))
}

func TestExportCommand_NothingEnabled(t *testing.T) {
	dir := writeSample(t)

	_, err := run(t, "export", "--postgres=false", "--neo4j=false", dir)
	assert.ErrorContains(t, err, "nothing to export")
}
