// Package preview hosts refx templates outside a browser.
//
// Template files are plain markup with ${...} placeholders:
//
//	${name}          a named value, bound as a Signal
//	${fn:name}       an event handler that records the event
//	${text:literal}  literal text, inlined and escaped
//	${html:name}     a named value bound as innerHTML
//	${attrs:name}    a named value bound as an attribute set ("k=v;k2=v2")
//	${data:name}     a named value bound as a dataset set ("k=v;k2=v2")
//
// An Instance binds a parsed template into a refx.Runtime. A Server exposes
// the instance over HTTP: clients send value updates or clicks on a
// websocket and receive the re-serialized DOM.
package preview
