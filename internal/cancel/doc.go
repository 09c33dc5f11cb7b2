// Package cancel provides cooperative cancellation for long operations.
//
// A Token carries a single pending-request flag bound to a context.Context.
// Long enumerations poll it between bounded units of work and stop early
// when it is set. Cancellation is never preemptive.
//
// A Guard belongs to one session and enforces at most one outstanding long
// operation: Begin cancels whatever token is still pending from the previous
// operation before handing out a new one.
package cancel
