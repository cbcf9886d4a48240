// Package routeguard decides, for each page path of the site, whether the
// page is shown, hidden, or held behind the site password.
//
// A Matcher answers the static questions (is the route enabled, is it
// protected). A Client talks to the /authenticate and /check-auth endpoints,
// carrying the session cookie in a cookie jar. A Guard combines both into the
// state machine a page shell renders:
//
//	Loading -> RouteDisabled
//	Loading -> PasswordRequired -> Content
//	Loading -> Content
//
// Every failure to confirm a session fails closed to PasswordRequired.
package routeguard
