// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package websocket streams notification-center updates to connected
// clients.
//
// Each connection belongs to one user. The hub routes a message only to the
// connections of its recipient; nothing is broadcast across users. Sends
// never block the caller: a full hub queue drops the message and a client
// whose buffer is full is disconnected. Clients recover missed rows through
// the REST inbox endpoints.
package websocket
