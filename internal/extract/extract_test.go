package extract

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag_ingest/internal/testutil"
)

func TestRow(t *testing.T) {
	row := Row{
		Columns: []string{"ID", "name", "city"},
		Values:  []any{int64(2), nil, "Paris"},
	}

	t.Run("Should omit null columns from text", func(t *testing.T) {
		assert.Equal(t, "ID: 2\ncity: Paris", row.Text())
	})

	t.Run("Should find id column case-insensitively", func(t *testing.T) {
		assert.Equal(t, int64(2), row.ID())
	})

	t.Run("Should return nil id when column is absent", func(t *testing.T) {
		assert.Nil(t, Row{Columns: []string{"name"}, Values: []any{"x"}}.ID())
	})

	t.Run("Should treat empty id as absent", func(t *testing.T) {
		assert.Nil(t, Row{Columns: []string{"id"}, Values: []any{""}}.ID())
		assert.Nil(t, Row{Columns: []string{"id"}, Values: []any{[]byte("  ")}}.ID())
		assert.Equal(t, int64(0), Row{Columns: []string{"id"}, Values: []any{int64(0)}}.ID())
	})

	t.Run("Should restrict text to selected columns", func(t *testing.T) {
		assert.Equal(t, "city: Paris", row.TextOf([]string{"city", "name"}))
	})
}

func TestElement_IsBoundary(t *testing.T) {
	assert.True(t, Element{Category: "Title"}.IsBoundary())
	assert.True(t, Element{Category: "Heading"}.IsBoundary())
	assert.True(t, Element{Category: "Heading2"}.IsBoundary())
	assert.False(t, Element{Category: "NarrativeText"}.IsBoundary())
	assert.False(t, Element{Category: "ListItem"}.IsBoundary())
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()

	t.Run("Should reject missing file", func(t *testing.T) {
		_, err := ValidatePath(filepath.Join(dir, "nope.csv"), FormatCSV)
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, FormatCSV, extErr.Format)
	})

	t.Run("Should reject directory", func(t *testing.T) {
		sub := filepath.Join(dir, "sub.csv")
		require.NoError(t, os.Mkdir(sub, 0o755))

		_, err := ValidatePath(sub, FormatCSV)
		assert.ErrorIs(t, err, ErrNotRegular)
	})

	t.Run("Should reject extension of another format", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "table.csv", "a,b\n1,2\n")

		_, err := ValidatePath(path, FormatHTML)
		assert.ErrorIs(t, err, ErrExtensionMismatch)
	})

	t.Run("Should reject pdf without pdf signature", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "broken.pdf", "this is not a pdf at all")

		_, err := ValidatePath(path, FormatPDF)
		assert.ErrorIs(t, err, ErrContentMismatch)
	})

	t.Run("Should return absolute path for valid file", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "ok.htm", "<p>x</p>")

		abs, err := ValidatePath(path, FormatHTML)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(abs))
		assert.Equal(t, "ok.htm", filepath.Base(abs))
	})
}

func TestPDF(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Should extract one element per page", func(t *testing.T) {
		path := testutil.WritePDF(t, dir, "two.pdf", "Hello World", "Second Page")

		elements, err := PDF(ctx, path)
		require.NoError(t, err)
		require.Len(t, elements, 2)
		assert.Contains(t, elements[0].Text, "Hello World")
		assert.Equal(t, 1, elements[0].Position)
		assert.Contains(t, elements[1].Text, "Second Page")
		assert.Equal(t, 2, elements[1].Position)
	})

	t.Run("Should fail on corrupt file", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "corrupt.pdf", "%PDF-1.4\ngarbage without xref")

		_, err := PDF(ctx, path)
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, FormatPDF, extErr.Format)
	})
}

func TestHTML(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Should extract typed block elements in order", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "page.html", `<!doctype html>
<html><head><title>ignored</title><style>p{}</style></head>
<body>
  <div>Intro <b>text</b></div>
  <h1>Chapter  One</h1>
  <p>First <a href="#">para</a>.</p>
  <script>var x = 1;</script>
  <ul><li>item a</li><li>item b</li></ul>
  <h2>Numbers</h2>
  <table><tr><th>k</th><th>v</th></tr><tr><td>a</td><td>1</td></tr></table>
</body></html>`)

		elements, err := HTML(ctx, path)
		require.NoError(t, err)

		var got []string
		for _, e := range elements {
			got = append(got, e.Category+":"+e.Text)
		}
		assert.Equal(t, []string{
			"NarrativeText:Intro text",
			"Heading:Chapter One",
			"NarrativeText:First para.",
			"ListItem:item a",
			"ListItem:item b",
			"Heading:Numbers",
			"Table:k | v",
			"Table:a | 1",
		}, got)
		assert.Equal(t, 1, elements[1].Level)
		assert.Equal(t, 2, elements[5].Level)
		for i, e := range elements {
			assert.Equal(t, i, e.Position)
		}
	})

	t.Run("Should return no elements for empty body", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "empty.htm", "<html><body>   </body></html>")

		elements, err := HTML(ctx, path)
		require.NoError(t, err)
		assert.Empty(t, elements)
	})
}

func TestDOCX(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Should detect headings by style id and style name", func(t *testing.T) {
		path := testutil.WriteDOCX(t, dir, "doc.docx",
			testutil.Paragraph{Style: "Title", Text: "Report"},
			testutil.Paragraph{Text: "Preface text"},
			testutil.Paragraph{Style: "Heading1", Text: "Scope"},
			testutil.Paragraph{Text: ""},
			testutil.Paragraph{Style: "Kop2", Text: "Details"},
			testutil.Paragraph{Style: "ListParagraph", Text: "point"},
		)

		elements, err := DOCX(ctx, path)
		require.NoError(t, err)
		require.Len(t, elements, 5)

		assert.Equal(t, Element{Text: "Report", Category: CategoryTitle, Position: 0, Level: 1}, elements[0])
		assert.Equal(t, CategoryNarrativeText, elements[1].Category)
		assert.Equal(t, Element{Text: "Scope", Category: CategoryHeading, Position: 2, Level: 1}, elements[2])
		assert.Equal(t, CategoryHeading, elements[3].Category)
		assert.Equal(t, 2, elements[3].Level)
		assert.Equal(t, CategoryListItem, elements[4].Category)
	})

	t.Run("Should keep owner paragraph text around a text box", func(t *testing.T) {
		path := testutil.WriteDOCX(t, dir, "textbox.docx",
			testutil.Paragraph{Raw: `<w:p><w:r><w:t>before </w:t></w:r>` +
				`<w:r><mc:AlternateContent>` +
				`<mc:Choice Requires="wps"><w:drawing><w:txbxContent>` +
				`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>boxed</w:t></w:r></w:p>` +
				`</w:txbxContent></w:drawing></mc:Choice>` +
				`<mc:Fallback><w:pict><w:txbxContent><w:p><w:r><w:t>boxed</w:t></w:r></w:p></w:txbxContent></w:pict></mc:Fallback>` +
				`</mc:AlternateContent></w:r>` +
				`<w:r><w:t>after</w:t></w:r></w:p>`},
			testutil.Paragraph{Text: "tail"},
		)

		elements, err := DOCX(ctx, path)
		require.NoError(t, err)
		require.Len(t, elements, 3)
		assert.Equal(t, Element{Text: "boxed", Category: CategoryHeading, Position: 0, Level: 1}, elements[0])
		assert.Equal(t, "before after", elements[1].Text)
		assert.Equal(t, CategoryNarrativeText, elements[1].Category)
		assert.Equal(t, "tail", elements[2].Text)
	})

	t.Run("Should fail on zip without document part", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "text.docx", "plain text, not a zip")

		_, err := DOCX(ctx, path)
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
	})
}

func TestDocxCategory(t *testing.T) {
	cat, level := docxCategory("Heading3", "", false)
	assert.Equal(t, CategoryHeading, cat)
	assert.Equal(t, 3, level)

	cat, _ = docxCategory("Normal", "Normal", true)
	assert.Equal(t, CategoryListItem, cat)

	cat, _ = docxCategory("a1", "Body Text", false)
	assert.Equal(t, CategoryNarrativeText, cat)
}

func TestCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Should read rows with nulls for empty cells", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "people.csv", "id,name\n1,Bob\n2,\n")

		rows, err := CSV(ctx, path, "")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"id", "name"}, rows[0].Columns)
		assert.Equal(t, "id: 1\nname: Bob", rows[0].Text())
		assert.Equal(t, "id: 2", rows[1].Text())
		assert.Nil(t, rows[1].Values[1])
	})

	t.Run("Should tolerate ragged rows and BOM", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "ragged.csv", "\ufeffa,b,c\n1\n1,2,3,4\n")

		rows, err := CSV(ctx, path, "utf-8")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "a", rows[0].Columns[0])
		assert.Equal(t, "a: 1", rows[0].Text())
		assert.Equal(t, "a: 1\nb: 2\nc: 3", rows[1].Text())
	})

	t.Run("Should decode declared encoding", func(t *testing.T) {
		// "café" в windows-1252
		path := filepath.Join(dir, "latin.csv")
		require.NoError(t, os.WriteFile(path, []byte("name\ncaf\xe9\n"), 0o644))

		rows, err := CSV(ctx, path, "windows-1252")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "name: café", rows[0].Text())
	})

	t.Run("Should return no rows for empty file", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "empty.csv", "")

		rows, err := CSV(ctx, path, "")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("Should fail on unknown encoding", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "enc.csv", "a\n1\n")

		_, err := CSV(ctx, path, "klingon-8")
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.True(t, strings.Contains(err.Error(), "unsupported encoding"))
	})
}

func TestSQL(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "rag.db")

	setup, err := sql.Open(DriverSQLite, dbPath)
	require.NoError(t, err)
	_, err = setup.Exec(`CREATE TABLE rag_documents (ID INTEGER, title TEXT, body TEXT)`)
	require.NoError(t, err)
	_, err = setup.Exec(`INSERT INTO rag_documents VALUES (1, 'First', 'alpha'), (2, 'Second', NULL)`)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	t.Run("Should map rows by column name", func(t *testing.T) {
		rows, err := SQL(ctx, SQLSource{
			Driver:     DriverSQLite,
			DataSource: dbPath,
			Query:      "SELECT ID, title, body FROM rag_documents ORDER BY ID",
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"ID", "title", "body"}, rows[0].Columns)
		assert.Equal(t, "ID: 1\ntitle: First\nbody: alpha", rows[0].Text())
		assert.Equal(t, "ID: 2\ntitle: Second", rows[1].Text())
		assert.Equal(t, int64(2), rows[1].ID())
	})

	t.Run("Should wrap query failure", func(t *testing.T) {
		_, err := SQL(ctx, SQLSource{Driver: DriverSQLite, DataSource: dbPath, Query: "SELECT * FROM missing"})
		var extErr *ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, FormatOracleSQL, extErr.Format)
	})

	t.Run("Should fail on unknown driver", func(t *testing.T) {
		_, err := SQL(ctx, SQLSource{Driver: "nope", Query: "SELECT 1"})
		require.Error(t, err)
		assert.True(t, errors.As(err, new(*ExtractionError)))
	})
}

func TestOracleDataSource(t *testing.T) {
	t.Run("Should build url from host port and service", func(t *testing.T) {
		dsn, err := OracleDataSource("scott", "tiger", "localhost:1521/XEPDB1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(dsn, "oracle://"))
		assert.Contains(t, dsn, "localhost:1521")
		assert.Contains(t, dsn, "XEPDB1")
		assert.Contains(t, dsn, "scott")
	})

	t.Run("Should pass through ready url", func(t *testing.T) {
		dsn, err := OracleDataSource("", "", "oracle://u:p@db:1521/svc")
		require.NoError(t, err)
		assert.Equal(t, "oracle://u:p@db:1521/svc", dsn)
	})

	t.Run("Should reject dsn without service", func(t *testing.T) {
		_, err := OracleDataSource("u", "p", "localhost:1521")
		assert.Error(t, err)
	})
}
