package analyzer

// Common value patterns for pattern-match analyzers. These are matched
// against the full cell value by the backend's regexp_matches function.
const (
	// PatternEmail matches RFC-lite e-mail addresses.
	PatternEmail = `[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*`

	// PatternURL matches http(s) and ftp URLs.
	PatternURL = `(https?|ftp)://[^\s/$.?#].[^\s]*`

	// PatternCreditCard matches the major card number formats, with optional
	// space or dash separators.
	PatternCreditCard = `(4[0-9]{12}(?:[0-9]{3})?|(?:5[1-5][0-9]{2}|222[1-9]|22[3-9][0-9]|2[3-6][0-9]{2}|27[01][0-9]|2720)[0-9]{12}|3[47][0-9]{13}|3(?:0[0-5]|[68][0-9])[0-9]{11}|6(?:011|5[0-9]{2})[0-9]{12}|(?:2131|1800|35\d{3})\d{11})`
)
