// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router contains the routing decision engine for the irie gateway.
//
// Two pure functions make up the engine: Analyze extracts topic and
// complexity features from raw query text, and Select maps those
// features to exactly one upstream provider through an ordered rule list.
// Both are total - any string input yields a usable result - and neither
// touches shared state, so they need no synchronization.
package router
