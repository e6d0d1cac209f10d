// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package world holds the client's view of the grid: the regions the
// agent is connected to and the objects those regions have announced.
//
// [ObjectList] and [RegionList] are written by the grid client's read
// goroutines and read by the area search loop, so both are safe for
// concurrent use. Objects are immutable once stored: an update
// replaces the stored pointer, so a *Object handed out by a lookup is
// a consistent snapshot.
//
// Region handles follow the grid convention: the region's global
// south-west corner in meters, x in the high 32 bits and y in the low
// 32 bits. Two regions are neighbours when their grid coordinates
// differ by at most one on each axis.
package world
