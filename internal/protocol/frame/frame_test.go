package frame

import (
	"testing"

	"github.com/danmuck/gmpctl/internal/testutil/testlog"
)

func TestExtractSelfClosing(t *testing.T) {
	testlog.Start(t)
	doc, rest, ok := Extract([]byte(`<authenticate_response status="200" status_text="OK"/>tail`))
	if !ok {
		t.Fatalf("expected document")
	}
	if string(doc) != `<authenticate_response status="200" status_text="OK"/>` {
		t.Fatalf("doc mismatch: %q", doc)
	}
	if string(rest) != "tail" {
		t.Fatalf("rest mismatch: %q", rest)
	}
}

func TestExtractWithDecorators(t *testing.T) {
	testlog.Start(t)
	in := "\n  <?xml version=\"1.0\"?>\n<!-- gvmd -->\n<get_version_response status=\"200\"><version>22.4</version></get_version_response><next"
	doc, rest, ok := Extract([]byte(in))
	if !ok {
		t.Fatalf("expected document")
	}
	want := "<?xml version=\"1.0\"?>\n<!-- gvmd -->\n<get_version_response status=\"200\"><version>22.4</version></get_version_response>"
	if string(doc) != want {
		t.Fatalf("doc mismatch:\n got=%q\nwant=%q", doc, want)
	}
	if string(rest) != "<next" {
		t.Fatalf("rest mismatch: %q", rest)
	}
	if got := RootTag(doc); got != "get_version_response" {
		t.Fatalf("root tag got=%q", got)
	}
}

func TestExtractWaitsForOpenDecorator(t *testing.T) {
	testlog.Start(t)
	for _, in := range []string{"<?xml version=\"1.0\"", "<!-- still open <a/>", "   "} {
		doc, rest, ok := Extract([]byte(in))
		if ok || doc != nil || string(rest) != in {
			t.Fatalf("input %q: expected no document and untouched buffer, got doc=%q rest=%q", in, doc, rest)
		}
	}
}

func TestExtractQuotedGreaterThan(t *testing.T) {
	testlog.Start(t)
	in := `<get_tasks_response status="200" status_text='a > b'><task id="t1"/></get_tasks_response>`
	doc, rest, ok := Extract([]byte(in))
	if !ok || string(doc) != in || len(rest) != 0 {
		t.Fatalf("unexpected extract: ok=%v doc=%q rest=%q", ok, doc, rest)
	}

	partial := `<a x="1 > 2`
	if _, _, ok := Extract([]byte(partial)); ok {
		t.Fatalf("tag split inside quoted value must wait")
	}
}

func TestExtractRejectsNonElementStart(t *testing.T) {
	testlog.Start(t)
	for _, in := range []string{"garbage<a/>", "</a>", "<1a/>"} {
		if _, rest, ok := Extract([]byte(in)); ok || string(rest) != in {
			t.Fatalf("input %q should not yield a document", in)
		}
	}
}

func TestExtractEveryOffsetSplit(t *testing.T) {
	testlog.Start(t)
	full := `<?xml version="1.0"?><get_users_response status="200" status_text="OK"><user id="u1"><name>alice</name></user></get_users_response>`
	for i := 1; i < len(full); i++ {
		first := []byte(full[:i])
		if _, rest, ok := Extract(first); ok {
			t.Fatalf("offset %d: premature document", i)
		} else if string(rest) != full[:i] {
			t.Fatalf("offset %d: buffer modified", i)
		}
		buf := append(first, full[i:]...)
		doc, rest, ok := Extract(buf)
		if !ok || string(doc) != full || len(rest) != 0 {
			t.Fatalf("offset %d: ok=%v doc=%q rest=%q", i, ok, doc, rest)
		}
	}
}

func TestExtractDrainsConcatenatedDocuments(t *testing.T) {
	testlog.Start(t)
	docs := []string{
		`<a_response status="200"/>`,
		`<b_response status="200"><x>1</x></b_response>`,
		`<!-- c --><c_response status="400" status_text="bad"/>`,
	}
	buf := []byte(docs[0] + "\n" + docs[1] + docs[2] + "\n")
	var got []string
	for {
		doc, rest, ok := Extract(buf)
		if !ok {
			break
		}
		got = append(got, string(doc))
		if len(rest) >= len(buf) {
			t.Fatalf("extract did not consume")
		}
		buf = rest
	}
	if len(got) != len(docs) {
		t.Fatalf("got %d docs want %d: %q", len(got), len(docs), got)
	}
	for i := range docs {
		if got[i] != docs[i] {
			t.Fatalf("doc %d mismatch: got=%q want=%q", i, got[i], docs[i])
		}
	}
	if string(buf) != "\n" {
		t.Fatalf("remainder got=%q", buf)
	}
}

func TestExtractNestedSameNameEndsEarly(t *testing.T) {
	testlog.Start(t)
	in := `<item id="1"><item>inner</item>tail</item>`
	doc, rest, ok := Extract([]byte(in))
	if !ok {
		t.Fatalf("expected document")
	}
	if string(doc) != `<item id="1"><item>inner</item>` {
		t.Fatalf("first closing tag should end the document, got=%q", doc)
	}
	if string(rest) != `tail</item>` {
		t.Fatalf("rest got=%q", rest)
	}
}

func TestRootTag(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		`<get_tasks filter="rows=-1"/>`:          "get_tasks",
		`<?xml version="1.0"?><x_response/>`:     "x_response",
		`<!-- hi --><ns:thing a="b"></ns:thing>`: "ns:thing",
		`no element`:                             "",
		`<?xml version="1.0" encoding="UTF-8"?>`: "",
	}
	for in, want := range cases {
		if got := RootTag([]byte(in)); got != want {
			t.Fatalf("RootTag(%q) got=%q want=%q", in, got, want)
		}
	}
}
