// Package board defines the static 40-square game board.
package board

const (
	// Size is the number of squares around the board.
	Size = 40
	// StartIndex is the square players begin on and collect the bonus for passing.
	StartIndex = 0
	// JailIndex is the Ossuary, where triple doubles and the warden send players.
	JailIndex = 10
	// GoToJailIndex sends a player landing on it to JailIndex.
	GoToJailIndex = 30

	StartBonus         = 200
	StartingMoney      = 1500
	GraveyardCost      = 100
	CryptCost          = 250
	MaxGraveyards      = 4
	StartingStealCards = 1
	MaxPlayers         = 8
	MinPlayers         = 2
)

// Kind classifies a square.
type Kind string

const (
	KindStart    Kind = "start"
	KindTomb     Kind = "tomb"
	KindDepot    Kind = "depot"
	KindUtility  Kind = "utility"
	KindJail     Kind = "jail"
	KindGoToJail Kind = "go_to_jail"
	KindRest     Kind = "rest"
	KindOmen     Kind = "omen"
	KindTithe    Kind = "tithe"
)

// Square is one space on the board.
//
// For tombs Rent holds six entries: undeveloped, one to four graveyards, and
// crypt. Depots and utilities compute rent from ownership counts instead.
type Square struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Group string `json:"group,omitempty"`
	Price int    `json:"price,omitempty"`
	Rent  []int  `json:"rent,omitempty"`
}

// Purchasable reports whether the square can be owned.
func (s Square) Purchasable() bool {
	return s.Kind == KindTomb || s.Kind == KindDepot || s.Kind == KindUtility
}

// Developable reports whether graveyards and crypts can be built on the square.
func (s Square) Developable() bool {
	return s.Kind == KindTomb
}

// Token slots are handed out in join order.
var tokens = []string{"ghost", "bat", "skull", "raven", "pumpkin", "cauldron", "coffin", "lantern"}

// TokenForSlot returns the token for the n-th joiner, or "" when out of range.
func TokenForSlot(slot int) string {
	if slot < 0 || slot >= len(tokens) {
		return ""
	}
	return tokens[slot]
}

var squares = []Square{
	{Index: 0, Name: "Cemetery Gates", Kind: KindStart},
	tomb(1, "t1", "Mossy Headstone", "mossy", 60, 2, 10, 30, 90, 160, 250),
	{Index: 2, Name: "Omen", Kind: KindOmen},
	tomb(3, "t2", "Cracked Headstone", "mossy", 60, 4, 20, 60, 180, 320, 450),
	{Index: 4, Name: "Gravedigger's Tithe", Kind: KindTithe},
	depot(5, "h1", "North Hearse Depot"),
	tomb(6, "t3", "Fogbound Marker", "foggy", 100, 6, 30, 90, 270, 400, 550),
	{Index: 7, Name: "Omen", Kind: KindOmen},
	tomb(8, "t4", "Misty Obelisk", "foggy", 100, 6, 30, 90, 270, 400, 550),
	tomb(9, "t5", "Pale Cairn", "foggy", 120, 8, 40, 100, 300, 450, 600),
	{Index: 10, Name: "Ossuary", Kind: KindJail},
	tomb(11, "t6", "Withered Rose Plot", "withered", 140, 10, 50, 150, 450, 625, 750),
	utility(12, "u1", "Candle Works"),
	tomb(13, "t7", "Thorned Plot", "withered", 140, 10, 50, 150, 450, 625, 750),
	tomb(14, "t8", "Dead Ivy Plot", "withered", 160, 12, 60, 180, 500, 700, 900),
	depot(15, "h2", "East Hearse Depot"),
	tomb(16, "t9", "Lantern Row", "lantern", 180, 14, 70, 200, 550, 750, 950),
	{Index: 17, Name: "Omen", Kind: KindOmen},
	tomb(18, "t10", "Wick Row", "lantern", 180, 14, 70, 200, 550, 750, 950),
	tomb(19, "t11", "Ember Row", "lantern", 200, 16, 80, 220, 600, 800, 1000),
	{Index: 20, Name: "Resting Bench", Kind: KindRest},
	tomb(21, "t12", "Blood Moon Vault", "bloodmoon", 220, 18, 90, 250, 700, 875, 1050),
	{Index: 22, Name: "Omen", Kind: KindOmen},
	tomb(23, "t13", "Crimson Vault", "bloodmoon", 220, 18, 90, 250, 700, 875, 1050),
	tomb(24, "t14", "Scarlet Vault", "bloodmoon", 240, 20, 100, 300, 750, 925, 1100),
	depot(25, "h3", "South Hearse Depot"),
	tomb(26, "t15", "Bone Garden", "bone", 260, 22, 110, 330, 800, 975, 1150),
	tomb(27, "t16", "Marrow Garden", "bone", 260, 22, 110, 330, 800, 975, 1150),
	utility(28, "u2", "Bell Tower"),
	tomb(29, "t17", "Skull Garden", "bone", 280, 24, 120, 360, 850, 1025, 1200),
	{Index: 30, Name: "The Warden", Kind: KindGoToJail},
	tomb(31, "t18", "Ivy Mausoleum", "ivy", 300, 26, 130, 390, 900, 1100, 1275),
	tomb(32, "t19", "Willow Mausoleum", "ivy", 300, 26, 130, 390, 900, 1100, 1275),
	{Index: 33, Name: "Omen", Kind: KindOmen},
	tomb(34, "t20", "Yew Mausoleum", "ivy", 320, 28, 150, 450, 1000, 1200, 1400),
	depot(35, "h4", "West Hearse Depot"),
	{Index: 36, Name: "Omen", Kind: KindOmen},
	tomb(37, "t21", "Obsidian Crypt", "obsidian", 350, 35, 175, 500, 1100, 1300, 1500),
	{Index: 38, Name: "Undertaker's Tithe", Kind: KindTithe},
	tomb(39, "t22", "Midnight Crypt", "obsidian", 400, 50, 200, 600, 1400, 1700, 2000),
}

var (
	byID    = map[string]Square{}
	byGroup = map[string][]string{}
)

func init() {
	for _, sq := range squares {
		if sq.ID == "" {
			continue
		}
		byID[sq.ID] = sq
		if sq.Group != "" {
			byGroup[sq.Group] = append(byGroup[sq.Group], sq.ID)
		}
	}
}

func tomb(index int, id, name, group string, price int, rent ...int) Square {
	return Square{Index: index, ID: id, Name: name, Kind: KindTomb, Group: group, Price: price, Rent: rent}
}

func depot(index int, id, name string) Square {
	return Square{Index: index, ID: id, Name: name, Kind: KindDepot, Group: "depot", Price: 200}
}

func utility(index int, id, name string) Square {
	return Square{Index: index, ID: id, Name: name, Kind: KindUtility, Group: "utility", Price: 150}
}

// Squares returns a copy of every square in board order.
func Squares() []Square {
	out := make([]Square, len(squares))
	copy(out, squares)
	return out
}

// At returns the square at index, wrapping around the board.
func At(index int) Square {
	index %= Size
	if index < 0 {
		index += Size
	}
	return squares[index]
}

// Lookup returns the purchasable square with the given id.
func Lookup(id string) (Square, bool) {
	sq, ok := byID[id]
	return sq, ok
}

// PropertyIDs returns the id of every purchasable square in board order.
func PropertyIDs() []string {
	ids := make([]string, 0, len(byID))
	for _, sq := range squares {
		if sq.ID != "" {
			ids = append(ids, sq.ID)
		}
	}
	return ids
}

// GroupMembers returns the property ids sharing group, in board order.
func GroupMembers(group string) []string {
	members := byGroup[group]
	out := make([]string, len(members))
	copy(out, members)
	return out
}
