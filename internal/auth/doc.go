// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package auth implements account credential verification, second-factor
// challenge issuance and consumption, and bearer-token minting.
//
// # Domain Types
//
// Account is created through NewAccount, which normalizes the email and
// validates all fields. Direct struct initialization bypasses validation
// and may create invalid state; repository implementations receive
// pre-validated values from the constructor.
//
// # Services
//
// Service is the orchestrator: it composes an AccountRepository, a
// ChallengeStore, a PasswordHasher, a TokenIssuer, and a CodeSender to
// implement signup, login, second-factor issuance, and second-factor
// verification. It holds no per-identity state: the single-use guarantee
// for challenge codes lives entirely in ChallengeStore.TakeIfMatches,
// which must be atomic per key.
package auth
