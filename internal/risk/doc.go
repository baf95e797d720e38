// Package risk provides the project risk register.
//
// Each risk is scored as probability × impact on 1–5 scales. The score
// maps to a level (low, medium, high, critical) and open risks are
// summarised in a 5×5 probability/impact matrix.
package risk
