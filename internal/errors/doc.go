// Package errors provides structured, coded errors for refx.
//
// Every error carries a code (e.g. "E101") registered with a category, a
// short message and a longer explanation. Template errors additionally carry
// the interpolation site they refer to, and the CLI attaches the template
// file location so Format can print the offending lines.
//
// # Error Categories
//
//   - compile: malformed templates (arity, unclassifiable sites)
//   - hydration: markers that could not be resolved against the DOM
//   - runtime: source subscription and sink problems
//   - config: configuration loading and validation
//   - cli: template loading and command usage
//
// # Usage
//
//	err := errors.New("E101").
//	    WithSite(2).
//	    WithSuggestion("Move the value into an attribute or between tags")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Interpolation site cannot be classified
//	//
//	//   card.html:3:14
//	//
//	//      2 │ <div class="card">
//	//   →  3 │   <p>Total ${total} items</p>
//	//        │              ^
//	//      4 │ </div>
//	//
//	//   Hint: Move the value into an attribute or between tags
package errors
