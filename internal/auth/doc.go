// Package auth provides authentication and authorisation for pmdesk.
//
// It implements a 3-tier role model (staff → manager → admin) with:
//   - Argon2id password hashing, bcrypt support and transparent migration
//     of legacy hashes on login
//   - JWT access tokens with refresh-token rotation and family-based theft detection
//   - Account lockout and keyed token-bucket rate limiting
//   - Double-submit CSRF tokens bound to the session
//   - Static role-permission mapping (compile-time, no database lookup)
//   - Project scoping derived from departments, project management and membership
//
// Admins bypass project scoping. Everyone else sees only the projects
// ResolveProjectScope returns, and may change only the subset it marks
// as manageable.
package auth
