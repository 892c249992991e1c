// Package extractors turns source files into chunks.
//
// Each subpackage handles one family of formats and implements
// driven.ContentExtractor. The Registry dispatches on the lowercase file
// extension; formats that need external tools (poppler, tesseract) run them
// through a cmdrun.Runner.
package extractors
