// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("🎮 go-questsync - Offline Action Queue & Reconnect Sync Engine")
	fmt.Println("==============================================================")
	fmt.Println()
	fmt.Println("go-questsync lets a learner keep playing while disconnected and have their")
	fmt.Println("progress (character growth, quest progress, achievements) reliably reach the")
	fmt.Println("server once connectivity returns.")
	fmt.Println()

	fmt.Println("📦 Packages:")
	fmt.Println()
	fmt.Println("  questsync/   - durable FIFO action queue, entity snapshot cache,")
	fmt.Println("                 single-flight sync dispatcher, per-kind synchronizers,")
	fmt.Println("                 connectivity monitor and reconnection trigger")
	fmt.Println("  sqlitestore/ - SQLite-backed durable store (survives app restarts)")
	fmt.Println()

	fmt.Println("📚 Example:")
	fmt.Println()
	fmt.Println("  🔌 Offline→Online Demo (examples/playdemo/)")
	fmt.Println("     Plays a session offline against a local game API, then reconnects")
	fmt.Println("     and watches the queue drain.")
	fmt.Println("     Run: cd examples/playdemo && go run .")
	fmt.Println()
}
