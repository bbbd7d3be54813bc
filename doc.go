// Package otplc converts between column-oriented "one token per line" (OTPL)
// annotation files and brat standoff annotations.
//
// # Quick Start
//
//	cfg, err := otplc.DefaultConfig("corpus/doc1.txt", "corpus/doc2.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if failed := otplc.ConvertFiles(cfg); failed > 0 {
//	    log.Fatalf("%d conversions failed", failed)
//	}
//
// For each text file the sibling OTPL file (same base name, ".lst" suffix by
// default) is read, its column specification is taken from an explicit header
// line or inferred from the data, and a brat ".ann" file is written next to
// the text. After a fully successful batch a best-effort annotation.conf is
// written as well.
//
// # Column specifications
//
// A colspec maps every column of an OTPL file to a semantic role: identifiers
// (SEGMENT_ID, GLOBAL_ENUM, LOCAL_ENUM), the single TOKEN column, tags
// (POS_TAG, ENTITY), associations (RELATION, EVENT), properties
// (NORMALIZATION, ATTRIBUTE) and references (LOCAL_REF, GLOBAL_REF).
// Association and property columns point at a target column: by default the
// nearest tag to their left, or an explicit one-based column given with a
// ":N" suffix in the header, as in "GLOBAL_REF:10".
//
// The brat line codec lives in the brat subpackage.
package otplc
