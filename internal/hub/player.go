// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package hub

import (
	"github.com/example/tidewar/internal/clientview"
	"github.com/example/tidewar/internal/world"
)

// Player is an extension of world.Player with extra data
type Player struct {
	world.Player
	ChatHistory ChatHistory
	FPS         float32

	// Optimizations
	TerrainArea world.AABB

	// View tracks what this connection was shown last tick, for
	// added/updated/removed contact diffing.
	View clientview.State
}
