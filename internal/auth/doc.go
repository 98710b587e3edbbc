// Package auth provides identity and authorization for coven-tutor.
//
// # Tiers
//
// Users belong to one of four ordered tiers:
//
//	visitor < student < moderator < admin
//
// Comparisons are ordinal: Tier.AtLeast reports whether a tier grants at least
// the privileges of another. The tutor is available from the student tier up.
//
// # Session Context
//
// SessionContext is the identity value handed to a tutor session when it is
// initialized. It carries the user ID, tier, and capability flags, so the
// session never looks up the current user on its own.
//
//	sc := auth.NewSessionContext("user-1", auth.TierStudent)
//	if !sc.CanUseTutor() { ... }
//
// # JWT Tokens
//
// The CLI authenticates users with HS256 tokens signed by the configured
// jwt_secret. The "sub" claim carries the user ID and the "tier" claim the
// tier name. A token without a tier claim is treated as a visitor.
//
//	v := auth.NewJWTVerifier([]byte(secret))
//	token, _ := v.Generate("user-1", auth.TierStudent, 24*time.Hour)
//	sc, err := v.ParseSessionContext(token)
package auth
