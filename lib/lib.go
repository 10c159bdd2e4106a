package lib

import "strings"

// VerifyDelimiter converts name from existingDelimiter to expectedDelimiter.
// Occurrences of expectedDelimiter already present in the name are escaped.
// An empty delimiter means a flat namespace: the name is returned verbatim.
func VerifyDelimiter(name, existingDelimiter, expectedDelimiter string) string {
	if existingDelimiter == expectedDelimiter || existingDelimiter == "" || expectedDelimiter == "" {
		return name
	}
	name = strings.ReplaceAll(name, expectedDelimiter, "\\"+expectedDelimiter)
	name = strings.ReplaceAll(name, existingDelimiter, expectedDelimiter)
	return name
}
