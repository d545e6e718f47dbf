package board

// TombRent returns the rent for a tomb given its development and whether the
// owner holds the whole group.
func TombRent(sq Square, graveyards int, hasCrypt bool, fullGroup bool) int {
	if len(sq.Rent) < MaxGraveyards+2 {
		return 0
	}
	switch {
	case hasCrypt:
		return sq.Rent[MaxGraveyards+1]
	case graveyards > 0:
		if graveyards > MaxGraveyards {
			graveyards = MaxGraveyards
		}
		return sq.Rent[graveyards]
	case fullGroup:
		return sq.Rent[0] * 2
	default:
		return sq.Rent[0]
	}
}

// DepotRent returns the rent owed when the owner holds owned depots.
func DepotRent(owned int) int {
	if owned <= 0 {
		return 0
	}
	return 25 << (owned - 1)
}

// UtilityRent returns the rent owed for a utility given how many the owner
// holds and the payer's last dice total.
func UtilityRent(owned int, diceTotal int) int {
	switch {
	case owned <= 0:
		return 0
	case owned == 1:
		return 4 * diceTotal
	default:
		return 10 * diceTotal
	}
}
