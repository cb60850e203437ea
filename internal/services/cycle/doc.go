/*
Package cycle implements the contribution-cycle and rotation-payout
engine.

A cycle is one collection round for a chama: it opens with an expected
amount derived from the active member count, collects contributions
against a globally unique transaction reference, and closes by paying
out to the rotation beneficiary.

State machine:

	UPCOMING -> ACTIVE -> COMPLETED
	UPCOMING/ACTIVE -> CANCELLED

Beneficiary selection is deterministic: the ACTIVE membership with the
lowest rotation position among those that have not yet received a
payout. When every active member has received one, the flags reset and
the rotation restarts from the lowest position.

Collected amounts are never trusted as running counters. Every payment
record and confirmation recomputes the total from completed
contributions inside the same transaction, so refunds and corrections
cannot leave a stale cache behind.
*/
package cycle
