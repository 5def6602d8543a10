package library

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs derived for library nodes.
var idNamespace = uuid.MustParse("6f1d6a2e-3c4b-5e8f-9a7d-2b1c0e4f8a93")

// StableID derives a node ID from its path of names, e.g.
// StableID("library.yaml", "Crafting", "Synth"). The same path always yields
// the same ID, and distinct paths never share one.
func StableID(path ...string) string {
	segments := make([]string, len(path))
	for i, name := range path {
		segments[i] = pathSegment(name, 0)
	}
	return segmentsID(segments)
}

// pathSegment encodes one step of a node path. repeat is how many earlier
// siblings share the name. The name is length-prefixed so a "/" or "#"
// inside it cannot be confused with the separators.
func pathSegment(name string, repeat int) string {
	seg := strconv.Itoa(len(name)) + ":" + name
	if repeat > 0 {
		seg += "#" + strconv.Itoa(repeat)
	}
	return seg
}

func segmentsID(segments []string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(segments, "/"))).String()
}
