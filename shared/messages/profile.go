package messages

// PlayerProfile is the slow-changing part of a player that does not ride in
// world snapshots. Sent on join and whenever a field changes.
type PlayerProfile struct {
	ID       string
	Nickname string
	Color    uint32 // 0xRRGGBBAA
	Coins    int
	HeldKind uint8 // netcomponents.ItemKind
	HeldData []byte
}
