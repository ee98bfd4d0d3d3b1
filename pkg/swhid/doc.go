// Package swhid parses Software Heritage persistent identifiers.
//
// An identifier has the form
//
//	swh:1:<type>:<40 hex digits>[;key:value[;key:value...]]
//
// where type is one of ori, snp, rev, rel, dir or cnt. The hash is accepted
// in any case and normalized to lowercase. Qualifiers keep their source
// order and are not deduplicated.
//
//	id, err := swhid.Parse("swh:1:dir:d198bc9d7a6bcf6db04f476d29314f157507d505;origin:https://github.com/torvalds/linux")
//	if err != nil {
//	    var pe *swhid.ParseError
//	    if errors.As(err, &pe) {
//	        log.Printf("bad %s: %s", pe.Field, pe.Reason)
//	    }
//	}
//	fmt.Println(id.Type) // directory
package swhid
