// Package web hosts the browser-facing Newsgate server: the access check,
// password sign-in, and the unlocked news list.
package web
