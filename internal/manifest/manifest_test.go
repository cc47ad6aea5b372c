package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseExtractsNormalizedNames(t *testing.T) {
	input := `
# audio fingerprinting deps
requests==2.31.0
PyDub>=0.25   # decoder
numpy
psycopg2_binary ; python_version >= "3.8"
Zope.Interface[test]~=6.0
mypkg @ https://example.com/mypkg-1.0.tar.gz
-r base.txt
--index-url https://pypi.org/simple
-e .
https://example.com/archive.zip
git+https://git@example.com/repo.git
./vendor/localpkg
`
	reqs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"requests", "pydub", "numpy", "psycopg2-binary", "zope-interface", "mypkg"}
	if got := Names(reqs); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected names\nwant: %v\ngot:  %v", want, got)
	}
	if reqs[0].Raw != "requests==2.31.0" || reqs[0].Line != 3 {
		t.Fatalf("unexpected first requirement: %+v", reqs[0])
	}
	if reqs[1].Raw != "PyDub>=0.25" {
		t.Fatalf("expected trailing comment stripped, got %q", reqs[1].Raw)
	}
}

func TestParseJoinsContinuationLines(t *testing.T) {
	reqs, err := Parse(strings.NewReader("requests==2.31.0 \\\n    --hash=sha256:abc\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Name != "requests" {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
}

func TestParseRejectsInvalidSpecifier(t *testing.T) {
	_, err := Parse(strings.NewReader("requests\n>=1.0\n"))
	if !errors.Is(err, ErrInvalidRequirement) {
		t.Fatalf("expected ErrInvalidRequirement, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestReadMissingManifest(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "requirements.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(path, []byte("requests==2.31.0\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	reqs, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Name != "requests" {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Django":            "django",
		"zope.interface":    "zope-interface",
		"Foo__Bar--baz..Q":  "foo-bar-baz-q",
		" psycopg2_binary ": "psycopg2-binary",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSkipsSchemeAndArchiveLines(t *testing.T) {
	input := `file:vendor/localpkg
file:///abs/vendor/pkg
localpkg-1.0-py3-none-any.whl
vendor/Other-2.0.tar.gz ; python_version >= "3.8"
dist.zip
requests==2.31.0
`
	reqs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := Names(reqs); !reflect.DeepEqual(got, []string{"requests"}) {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestParseFlushesContinuationAtEOF(t *testing.T) {
	reqs, err := Parse(strings.NewReader("numpy\nrequests \\"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := Names(reqs); !reflect.DeepEqual(got, []string{"numpy", "requests"}) {
		t.Fatalf("unexpected names: %v", got)
	}
	if reqs[1].Line != 2 {
		t.Fatalf("unexpected line for trailing requirement: %d", reqs[1].Line)
	}
}
