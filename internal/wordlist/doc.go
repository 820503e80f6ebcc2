// Package wordlist loads candidate password lists.
//
// A wordlist is a newline-delimited text file; blank lines are skipped and
// file order is preserved because it is the trial order. Files in legacy
// encodings (latin-1, UTF-16) are decoded on the fly so candidates containing
// non-ASCII bytes survive the trip to the login form intact.
package wordlist
