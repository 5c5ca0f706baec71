// Package cdp drives a Chrome instance over the DevTools protocol and
// reports its navigation lifecycle as webnav events.
//
// Protocol events map to lifecycle events as follows:
//
//	Network.requestWillBeSent (Document, not a redirect) -> onBeforeNavigate
//	Page.frameNavigated                                  -> onCommitted
//	Page.lifecycleEvent "DOMContentLoaded"               -> onDOMContentLoaded
//	Page.lifecycleEvent "load"                           -> onCompleted
//
// Nothing is reported until the first Navigate call, so the tab's initial
// about:blank load never reaches the engine.
package cdp
