package otplc

import (
	"errors"
	"testing"
)

// checkGuess verifies that guessing the colspec of the given otpl content
// reproduces the specification described by header.
func checkGuess(t *testing.T, content, header string) {
	t.Helper()
	want, err := ColumnSpecFromHeader(header)
	if err != nil {
		t.Fatalf("ColumnSpecFromHeader(%q) error = %v", header, err)
	}

	got, err := GuessColspec(writeOtpl(t, content))
	if err != nil {
		t.Fatalf("GuessColspec() error = %v", err)
	}
	if got.String() != want.String() {
		t.Errorf("GuessColspec() = %q, want %q", got.String(), want.String())
	}
	if !got.Equal(want) {
		t.Errorf("GuessColspec() targets differ from %q", header)
	}
}

func TestGuessDefault(t *testing.T) {
	checkGuess(t,
		"1 seg1 1 tok1 pos1 B-tag1 ns:id1 2 rel1 0 0 null O att1\n"+
			"2 seg1 2 tok2 pos2 I-tag2 ns:id2 0 null 2 1 ent1 E-tag att2\n\n"+
			"3 seg2 1 tok3 pos3 B-tag3 ns:id3 0 null 3 1 ent2 I-tag att3\n"+
			"4 seg2 2 tok4 pos4 I-tag4 ns:id4 1 rel2 0 0 null E-tag att4\n\n",
		"GLOBAL_ENUM SEGMENT_ID LOCAL_ENUM TOKEN POS_TAG ENTITY NORMALIZATION "+
			"LOCAL_REF RELATION GLOBAL_REF LOCAL_REF EVENT ENTITY ATTRIBUTE")
}

func TestGuessHeaderLine(t *testing.T) {
	// the header overrides guessing: alone, the first ENTITY would be
	// taken for a POS_TAG and the references would bind differently
	header := "SEGMENT_ID TOKEN ENTITY ENTITY LOCAL_REF:4 LOCAL_REF:7 EVENT"
	checkGuess(t,
		header+"\n\n"+
			"1 tok1 ent1 ent5 2 2 event1\n"+
			"1 tok2 ent2 ent6 3 1 event2\n"+
			"1 tok3 ent3 ent7 1 3 event3\n\n"+
			"2 tok4 ent4 ent8 1 1 event4\n\n",
		header)
}

func TestGuessPosDepNorm(t *testing.T) {
	checkGuess(t,
		"This    DT  6 nsubj B-NP NULL\n"+
			"is      VBZ 6 cop   B-VP NULL\n"+
			"Florian NNP 6 nn    B-NP NULL\n"+
			"ʼs      POS 3 pos   I-NP mailto:florian.leitner@gmail.com\n"+
			"weird   JJ  6 amod  I-NP NULL\n"+
			"test    NN  0 root  I-NP NULL\n"+
			".       .   6 punct O    NULL\n\n",
		"TOKEN POS_TAG LOCAL_REF RELATION ENTITY NORMALIZATION")
}

func TestGuessThreeEnums(t *testing.T) {
	// only two enumeration columns can exist; the loser stays unknown
	checkGuess(t,
		"1 1 1 token1\n"+
			"2 2 2 token2\n"+
			"3 3 3 token3\n\n"+
			"4 1 1 token4\n"+
			"5 2 2 token5\n\n",
		"GLOBAL_ENUM _UNKNOWN LOCAL_ENUM TOKEN")
}

func TestGuessDependency(t *testing.T) {
	checkGuess(t,
		"1 This DT B-NP NULL 6 nsubj\n"+
			"2 is VBZ B-VP NULL 6 cop\n"+
			"3 Florian NNP B-NP mailto:florian.leitner@gmail.com 6 nn\n"+
			"4 ʼs POS I-NP NULL 3 pos\n"+
			"5 weird JJ I-NP NULL 6 amod\n"+
			"6 test NN I-NP NULL 0 root\n"+
			"7 . . O NULL 6 punct\n\n",
		"LOCAL_ENUM TOKEN POS_TAG ENTITY NORMALIZATION LOCAL_REF RELATION")
}

func TestGuessGlobalRef(t *testing.T) {
	// references exceeding their segment's length must be global
	checkGuess(t,
		"tok1 pos1 3 rel1\n"+
			"tok2 pos2 1 rel1\n\n"+
			"tok3 pos3 2 rel1\n"+
			"tok4 pos4 5 rel1\n\n"+
			"tok5 pos5 6 rel1\n"+
			"tok6 pos6 4 rel1\n\n",
		"TOKEN POS_TAG GLOBAL_REF RELATION")
}

func TestGuessLocalRef(t *testing.T) {
	checkGuess(t,
		"tok1 pos1 2 rel1\n"+
			"tok2 pos2 1 rel1\n\n"+
			"tok3 pos3 2 rel1\n"+
			"tok4 pos4 1 rel1\n\n"+
			"tok5 pos5 0 NULL\n"+
			"tok6 pos6 0 NULL\n\n",
		"TOKEN POS_TAG LOCAL_REF RELATION")
}

func TestGuessEmptyFile(t *testing.T) {
	_, err := GuessColspec(writeOtpl(t, ""))
	if !errors.Is(err, ErrGuessFailed) {
		t.Fatalf("GuessColspec() error = %v, want ErrGuessFailed", err)
	}
}

func TestGuessSingleColumn(t *testing.T) {
	_, err := GuessColspec(writeOtpl(t, "tok1\ntok2\n\n"))
	if !errors.Is(err, ErrGuessFailed) {
		t.Fatalf("GuessColspec() error = %v, want ErrGuessFailed", err)
	}
}
