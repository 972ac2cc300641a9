package reconcile

import "strings"

// historicalAppPrefix is the legacy prefix application keys used to carry;
// both forms of a key refer to the same application.
const historicalAppPrefix = "app-"

// environmentAppSuffixes are deployment-environment decorations appended to
// application keys by some producers.
var environmentAppSuffixes = []string{
	"-development", "-devel", "-staging", "-stage", "-production", "-prod",
}

// PossibleApplicationNames returns every historically-equivalent form of an
// application key: the key itself, its app- prefixed/stripped twin, and the
// environment-suffix-stripped variants of both.
func PossibleApplicationNames(appKey string) []string {
	keys := []string{appKey}
	if strings.HasPrefix(appKey, historicalAppPrefix) {
		keys = append(keys, strings.TrimPrefix(appKey, historicalAppPrefix))
	} else {
		keys = append(keys, historicalAppPrefix+appKey)
	}

	for _, suffix := range environmentAppSuffixes {
		if strings.HasSuffix(appKey, suffix) {
			for _, k := range keys[:2:2] {
				keys = append(keys, strings.TrimSuffix(k, suffix))
			}
			break
		}
	}
	return keys
}
