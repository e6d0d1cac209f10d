// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package regionclient connects to a grid and keeps the world model
// current.
//
// A [Client] owns one circuit. Its read loop applies object updates
// and kills to a world.ObjectList, region handshakes and disables to a
// world.RegionList, and forwards property and name replies to the
// configured callbacks. It implements areasearch.PropertyTransport for
// outgoing selects and namecache.Backend for name lookups.
//
// Every region is reached through the client's single circuit; the
// endpoint a region advertises is recorded but not dialled.
package regionclient
