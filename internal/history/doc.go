// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history reconstructs a navigable conversation from the backend's
// flat message history.
//
// The backend stores one record per request/response pair with no notion of
// regeneration. Regenerating a response creates a brand-new record with the
// same request. Reconcile groups such records back into one conversation
// slot carrying an ordered chain of response versions, so the client can
// offer prev/next navigation between regenerations the way the web frontend
// does.
package history
