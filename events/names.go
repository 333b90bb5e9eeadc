package events

import (
	"slices"
	"strings"

	"github.com/go-openapi/swag"
)

// Name is a wire-level event name, for example "PlayerMessage".
type Name string

// Supported event names.
const (
	AgentCommand     Name = "AgentCommand"
	BlockBroken      Name = "BlockBroken"
	BlockPlaced      Name = "BlockPlaced"
	BossKilled       Name = "BossKilled"
	CameraUsed       Name = "CameraUsed"
	CauldronUsed     Name = "CauldronUsed"
	EndOfDay         Name = "EndOfDay"
	EntitySpawned    Name = "EntitySpawned"
	ItemAcquired     Name = "ItemAcquired"
	ItemCrafted      Name = "ItemCrafted"
	ItemDestroyed    Name = "ItemDestroyed"
	ItemDropped      Name = "ItemDropped"
	ItemEnchanted    Name = "ItemEnchanted"
	ItemEquipped     Name = "ItemEquipped"
	ItemInteracted   Name = "ItemInteracted"
	ItemNamed        Name = "ItemNamed"
	ItemSmelted      Name = "ItemSmelted"
	ItemUsed         Name = "ItemUsed"
	MobInteracted    Name = "MobInteracted"
	MobKilled        Name = "MobKilled"
	PlayerBounced    Name = "PlayerBounced"
	PlayerDied       Name = "PlayerDied"
	PlayerJoin       Name = "PlayerJoin"
	PlayerLeave      Name = "PlayerLeave"
	PlayerMessage    Name = "PlayerMessage"
	PlayerTeleported Name = "PlayerTeleported"
	PlayerTransform  Name = "PlayerTransform"
	PlayerTravelled  Name = "PlayerTravelled"
	PortalBuilt      Name = "PortalBuilt"
	PortalUsed       Name = "PortalUsed"
	PotionBrewed     Name = "PotionBrewed"
	ScreenChanged    Name = "ScreenChanged"
	SignedBookOpened Name = "SignedBookOpened"
	SpecialMobBuilt  Name = "SpecialMobBuilt"
	StartWorld       Name = "StartWorld"
	TargetBlockHit   Name = "TargetBlockHit"
	VehicleExited    Name = "VehicleExited"
	WorldGenerated   Name = "WorldGenerated"
	WorldLoaded      Name = "WorldLoaded"
	WorldUnloaded    Name = "WorldUnloaded"
)

var supported = map[Name]struct{}{}

// lowered maps the lower-cased wire name to its canonical spelling.
var lowered = map[string]Name{}

func init() {
	for _, n := range []Name{
		AgentCommand, BlockBroken, BlockPlaced, BossKilled, CameraUsed, CauldronUsed,
		EndOfDay, EntitySpawned, ItemAcquired, ItemCrafted, ItemDestroyed, ItemDropped,
		ItemEnchanted, ItemEquipped, ItemInteracted, ItemNamed, ItemSmelted, ItemUsed,
		MobInteracted, MobKilled, PlayerBounced, PlayerDied, PlayerJoin, PlayerLeave,
		PlayerMessage, PlayerTeleported, PlayerTransform, PlayerTravelled, PortalBuilt,
		PortalUsed, PotionBrewed, ScreenChanged, SignedBookOpened, SpecialMobBuilt,
		StartWorld, TargetBlockHit, VehicleExited, WorldGenerated, WorldLoaded, WorldUnloaded,
	} {
		supported[n] = struct{}{}
		lowered[strings.ToLower(string(n))] = n
	}
}

// Valid reports whether name is a supported wire event name.
func Valid(name Name) bool {
	_, ok := supported[name]
	return ok
}

// Names returns the supported wire event names in lexical order.
func Names() []Name {
	out := make([]Name, 0, len(supported))
	for n := range supported {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// WireName translates a handler-facing name into its wire event name.
//
// Both "player_message" and "PlayerMessage" translate to PlayerMessage. The second
// return value is false when the result is not a supported event name.
func WireName(name string) (Name, bool) {
	if n := Name(name); Valid(n) {
		return n, true
	}
	n, ok := lowered[strings.ToLower(swag.ToGoName(name))]
	if !ok {
		return Name(swag.ToGoName(name)), false
	}
	return n, true
}

// HandlerName translates a wire event name into handler casing ("PlayerMessage" -> "player_message").
func HandlerName(name Name) string {
	return swag.ToFileName(string(name))
}
