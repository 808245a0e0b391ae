// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// A Turn is one exchange with the backend: the user's request plus the
// assistant's (possibly still streaming) response. Turns carry their tool
// invocations and are collected into a Conversation. Regenerated responses
// are represented as ResponseVersions; grouping turns into versioned slots
// is the job of the history package.
package model
