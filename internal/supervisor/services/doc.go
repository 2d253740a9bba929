// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package services adapts the server's components to suture.Service.
//
// Each wrapper starts its component in Serve, blocks until the context is
// canceled, then stops it with a fresh timeout context. Wrappers implement
// fmt.Stringer so supervisor logs name the service.
package services
