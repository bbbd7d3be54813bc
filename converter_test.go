package otplc

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// convertFixture writes the text and otpl contents to a temporary directory
// and converts them, returning the brat annotation file path.
func convertFixture(t *testing.T, text, otpl, filter string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	otplFile := filepath.Join(dir, "sample.lst")
	bratFile := filepath.Join(dir, "sample.ann")

	if err := os.WriteFile(textFile, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otplFile, []byte(otpl), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(otplFile)
	if err := r.SetSeparator(`\s+`); err != nil {
		t.Fatal(err)
	}
	if filter != "" {
		if err := r.SetFilter(filter); err != nil {
			t.Fatal(err)
		}
	}

	colspec, err := GuessColspec(r)
	if err != nil {
		t.Fatalf("GuessColspec() error = %v", err)
	}

	converter := NewConverter(colspec)
	return bratFile, converter.Convert(r, textFile, bratFile)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestConvert(t *testing.T) {
	bratFile, err := convertFixture(t,
		"This is Florianʼs weird test.",
		"This    DT  6 nsubj B-NP NULL\n"+
			"is      VBZ 6 cop   B-VP NULL\n"+
			"% a comment line in %\n"+
			"Florian NNP 6 nn    B-NP NULL\n"+
			"ʼs      POS 3 pos   I-NP db:id\n"+
			"weird   JJ  6 amod  I-NP NULL\n"+
			"test    NN  0 root  I-NP NULL\n"+
			".       DOT 6 punct O    NULL\n\n",
		`^%`)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	want := []string{
		"T1\tDT 0 4\tThis",
		"T2\tVBZ 5 7\tis",
		"T3\tNNP 8 15\tFlorian",
		"T4\tPOS 15 17\tʼs",
		"T5\tJJ 18 23\tweird",
		"T6\tNN 24 28\ttest",
		"T7\tDOT 28 29\t.",
		"T8\tNP 0 4\tThis",
		"T9\tVP 5 7\tis",
		"T10\tNP 8 28\tFlorianʼs weird test",
		"R1\tnsubj Arg1:T1 Arg2:T6",
		"R2\tcop Arg1:T2 Arg2:T6",
		"R3\tnn Arg1:T3 Arg2:T6",
		"R4\tpos Arg1:T4 Arg2:T3",
		"R5\tamod Arg1:T5 Arg2:T6",
		"R6\tpunct Arg1:T7 Arg2:T6",
		"N1\tReference T10 db:id\tdb:id",
	}
	got := readLines(t, bratFile)
	if len(got) != len(want) {
		t.Fatalf("Convert() wrote %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
}

func TestConvertUnmatchedToken(t *testing.T) {
	_, err := convertFixture(t,
		"This is Florianʼs weird test.",
		"This DT 6 nsubj B-NP NULL\n"+
			"is VBZ 6 cop B-VP NULL\n"+
			"Florian NNP 6 nn B-NP NULL\n"+
			"ʼs POS 3 pos I-NP mailto:florian.leitner@gmail.com\n"+
			"weird JJ 6 amod I-NP NULL\n"+
			"anti-test NN 0 root I-NP NULL\n"+
			". . 6 punct O NULL\n\n",
		"")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Convert() error = %v, want ErrTokenNotFound", err)
	}
	if !strings.Contains(err.Error(), `"anti-test" from line 6`) {
		t.Errorf("Convert() error = %v, want the token and line named", err)
	}
}

func TestConvertWithoutColspec(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(textFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	converter := NewConverter(nil)
	err := converter.Convert(NewReader(filepath.Join(dir, "sample.lst")), textFile,
		filepath.Join(dir, "sample.ann"))
	if !errors.Is(err, ErrNoColspec) {
		t.Fatalf("Convert() error = %v, want ErrNoColspec", err)
	}
}

func TestConvertGlobalReferences(t *testing.T) {
	// the first segment's relation points forward into the second segment
	bratFile, err := convertFixture(t,
		"tok1 tok2\ntok3 tok4\n",
		"tok1 pos1 3 rel1\n"+
			"tok2 pos2 0 NULL\n\n"+
			"tok3 pos3 2 rel2\n"+
			"tok4 pos4 0 NULL\n\n",
		"")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	want := []string{
		"T1\tpos1 0 4\ttok1",
		"T2\tpos2 5 9\ttok2",
		"T3\tpos3 10 14\ttok3",
		"T4\tpos4 15 19\ttok4",
		"R1\trel1 Arg1:T1 Arg2:T3",
		"R2\trel2 Arg1:T3 Arg2:T2",
	}
	got := readLines(t, bratFile)
	if len(got) != len(want) {
		t.Fatalf("Convert() wrote %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
}

func TestConvertNameLabels(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	otplFile := filepath.Join(dir, "sample.lst")
	bratFile := filepath.Join(dir, "sample.ann")

	if err := os.WriteFile(textFile, []byte("tok1 tok2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otplFile, []byte("tok1 weird.pos\ntok2 NN\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(otplFile)
	if err := r.SetSeparator(`\s+`); err != nil {
		t.Fatal(err)
	}
	colspec, err := GuessColspec(r)
	if err != nil {
		t.Fatalf("GuessColspec() error = %v", err)
	}

	converter := NewConverter(colspec, WithNameLabels(map[string]string{"weird.pos": "weird-pos"}))
	if err := converter.Convert(r, textFile, bratFile); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	got := readLines(t, bratFile)
	want := []string{
		"T1\tweird-pos 0 4\ttok1",
		"T2\tNN 5 9\ttok2",
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
}

func TestConvertSharedEventName(t *testing.T) {
	// two event columns using the same type name with different arities
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	otplFile := filepath.Join(dir, "sample.lst")
	bratFile := filepath.Join(dir, "sample.ann")
	confFile := filepath.Join(dir, "annotation.conf")

	if err := os.WriteFile(textFile, []byte("tok1 tok2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otplFile, []byte(
		"tok1 N1 2 2 evt 0 0 0 NULL\n"+
			"tok2 N2 0 0 NULL 1 1 1 evt\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	colspec, err := ColumnSpecFromHeader(
		"TOKEN POS_TAG LOCAL_REF LOCAL_REF EVENT LOCAL_REF LOCAL_REF LOCAL_REF EVENT")
	if err != nil {
		t.Fatalf("ColumnSpecFromHeader() error = %v", err)
	}
	r := NewReader(otplFile)
	if err := r.SetSeparator(`\s+`); err != nil {
		t.Fatal(err)
	}

	converter := NewConverter(colspec)
	if err := converter.Convert(r, textFile, bratFile); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	want := []string{
		"T1\tN1 0 4\ttok1",
		"T2\tN2 5 9\ttok2",
		"E1\tevt:T2 Arg1:T2",
		"E2\tevt:T1 Arg1:T1 Arg2:T1",
	}
	got := readLines(t, bratFile)
	if len(got) != len(want) {
		t.Fatalf("Convert() wrote %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}

	// the argument column never seen by the narrow instance is optional
	if err := converter.WriteConfig(confFile); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}
	conf := readLines(t, confFile)
	wantLine := "evt\tCol4:<ENTITY>, Col8?:<ENTITY>"
	if !slices.Contains(conf, wantLine) {
		t.Errorf("WriteConfig() lacks %q:\n%s", wantLine, strings.Join(conf, "\n"))
	}
}

func TestConvertUnicodeNames(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	otplFile := filepath.Join(dir, "sample.lst")
	bratFile := filepath.Join(dir, "sample.ann")

	if err := os.WriteFile(textFile, []byte("tok1 tok2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otplFile, []byte("tok1 Müß\ntok2 NN\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	colspec, err := ColumnSpecFromHeader("TOKEN POS_TAG")
	if err != nil {
		t.Fatalf("ColumnSpecFromHeader() error = %v", err)
	}
	r := NewReader(otplFile)
	if err := r.SetSeparator(`\s+`); err != nil {
		t.Fatal(err)
	}

	converter := NewConverter(colspec)
	if err := converter.Convert(r, textFile, bratFile); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	got := readLines(t, bratFile)
	want := []string{
		"T1\tMüß 0 4\ttok1",
		"T2\tNN 5 9\ttok2",
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")
	otplFile := filepath.Join(dir, "sample.lst")
	bratFile := filepath.Join(dir, "sample.ann")
	confFile := filepath.Join(dir, "annotation.conf")

	if err := os.WriteFile(textFile, []byte("T1 T2 T3 T4\nT1T2-T3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otplFile, []byte(
		"T1 ent1 att1 1 rel1 1 2 evt1 att1\n"+
			"T2 ent2 NULL 3 rel2 0 3 NULL NULL\n"+
			"T3 ent1 NULL 4 rel2 3 4 evt1 att2\n"+
			"T4 ent2 att1 3 rel3 4 2 evt2 att1\n\n"+
			"T1 ent3 NULL 1 rel1 3 1 evt1 att2\n"+
			"T2 ent1 NULL 3 rel1 3 2 evt2 NULL\n"+
			"T3 ent2 att1 2 rel3 3 0 evt2 att2\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(otplFile)
	if err := r.SetSeparator(`\s+`); err != nil {
		t.Fatal(err)
	}
	colspec, err := GuessColspec(r)
	if err != nil {
		t.Fatalf("GuessColspec() error = %v", err)
	}

	converter := NewConverter(colspec)
	if err := converter.Convert(r, textFile, bratFile); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if err := converter.WriteConfig(confFile); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}

	want := []string{
		"", "[entities]", "",
		"ent1",
		"ent2",
		"ent3",
		"", "[relations]", "",
		"rel1\tArg1:<ENTITY>, Arg2:<ENTITY>",
		"rel2\tArg1:<ENTITY>, Arg2:<ENTITY>",
		"rel3\tArg1:<ENTITY>, Arg2:<ENTITY>",
		"", "[events]", "",
		"evt1\tCol7:<ENTITY>",
		"evt2\tCol7?:<ENTITY>",
		"", "[attributes]", "",
		"att1\tArg:<ANY>",
		"att2\tArg:<EVENT>",
	}
	got := readLines(t, confFile)
	if len(got) != len(want) {
		t.Fatalf("WriteConfig() wrote %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
}
