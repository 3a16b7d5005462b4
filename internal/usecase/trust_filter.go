package usecase

// IsTrustedLink reports whether link contains none of the untrusted domain substrings.
//
// The match is a plain substring test on the whole URL, not on the parsed host,
// so mirrors and redirect links that carry the marketplace name anywhere are
// rejected too. A path that happens to contain a listed name is a false positive
// we accept.
func IsTrustedLink(untrustedDomains []string, link string) bool {
	return !ContainsAnyTerm(untrustedDomains, link)
}
