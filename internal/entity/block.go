package entity

// Block is a destructible object spawned by the host in the laser duel.
type Block struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
}
