/*
Package session keeps walks that are parked on a human approval.

A suspended walk may be resumed by a later request, possibly on another replica. The
Manager serializes access per walk with a reference-counted local mutex and, when a
distributed locker is configured, a lease shared by every replica.
*/
package session
