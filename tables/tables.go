package tables

// These tables are in their own file because they are large.
//
// This is the documented subset of the event flag namespace: a flag ID to
// name/category mapping assembled from community research.  It is static
// lookup data - built once, never mutated.  The codec doesn't care whether a
// flag is in here; undocumented IDs are still perfectly addressable, they
// just display as "Unknown".

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Flag_info struct {
	Name        string
	Category    string
	Subcategory string
}

// Category display order.  Fixed, because alphabetical order would put
// "Misc" in the middle, which looks ridiculous in every list.
var categories = []string{
	"Bosses",
	"Sites of Grace",
	"NPCs",
	"Quests",
	"Key Items",
	"World Events",
	"Endings",
	"Misc",
}

var Event_flags = make_event_flags()

func make_event_flags() map[int]Flag_info {
	flags := map[int]Flag_info{
		// Major bosses.  Defeat flags, one per boss.
		9100: {"Grafted King defeated", "Bosses", "Stormveil"},
		9101: {"Stormveil gate sentinel defeated", "Bosses", "Stormveil"},
		9104: {"Queen of the Lakes defeated", "Bosses", "Lakes"},
		9107: {"Shard-bearer of the Red Wastes defeated", "Bosses", "Red Wastes"},
		9110: {"Praetor of the Volcano defeated", "Bosses", "Plateau"},
		9113: {"Capital Warden defeated", "Bosses", "Capital"},
		9116: {"Giant of the Frozen Peak defeated", "Bosses", "Peaks"},
		9118: {"Twin Scions defeated", "Bosses", "Capital"},
		9120: {"First Lord defeated", "Bosses", "Capital"},
		9123: {"Serpent of the Manor devoured", "Bosses", "Plateau"},
		9126: {"Starscourge defeated", "Bosses", "Red Wastes"},
		9129: {"Rot Goddess defeated", "Bosses", "Underground"},
		9132: {"Blind Swordsman's duel won", "Bosses", "Underground"},
		9135: {"Dragonlord defeated", "Bosses", "Peaks"},

		// Plot gates
		20:    {"Tutorial cave exited", "World Events", ""},
		21:    {"First grace touched", "World Events", ""},
		102:   {"Maiden's blessing accepted", "World Events", ""},
		71190: {"Round Hall unlocked", "World Events", ""},
		71191: {"Round Hall blacksmith met", "World Events", ""},
		71200: {"Great lift medallion used (left)", "World Events", ""},
		71201: {"Great lift medallion used (right)", "World Events", ""},
		71210: {"Capital gate opened", "World Events", ""},
		71220: {"Forge of the Giants lit", "World Events", ""},
		71230: {"Capital in ashes", "World Events", ""},

		// Endings.  Mutually exclusive in-game, but this tool doesn't care.
		1001: {"Ending: Age of Order", "Endings", ""},
		1002: {"Ending: Age of Stars", "Endings", ""},
		1003: {"Ending: Flame of Ruin", "Endings", ""},
		1004: {"Ending: Age of Duskborn", "Endings", ""},

		// Key items
		60100: {"Spectral steed whistle obtained", "Key Items", ""},
		60110: {"Crafting kit obtained", "Key Items", ""},
		60120: {"Lantern obtained", "Key Items", ""},
		60130: {"Sewer key obtained", "Key Items", ""},
		60140: {"Secret medallion (left half) obtained", "Key Items", ""},
		60141: {"Secret medallion (right half) obtained", "Key Items", ""},
	}

	// Sites of grace.  Discovery flags are a contiguous run per region.
	graces := map[string]struct {
		base  int
		names []string
	}{
		"Limveld": {71000, []string{
			"Cave of Knowledge", "Stranded Chapel", "First Step", "Lakeside Ruin",
			"Gatefront", "Stormhill Shack", "Castleward Tunnel", "Seaside Tower",
			"Third Church", "Mist Coast", "Summonwater Approach",
		}},
		"Lakes": {71030, []string{
			"Lake-Facing Cliffs", "Laskyar Crossing", "Academy Gate", "Scenic Isle",
			"Folly on the Lake", "Sorcerer's Isle", "Manor Lower Ground",
			"Ravine Precipice",
		}},
		"Red Wastes": {71060, []string{
			"Rotview Balcony", "Smoldering Church", "Sellia Backstreets",
			"Church of the Plague", "Impassable Bridge", "Dragon Mound",
		}},
		"Plateau": {71080, []string{
			"Grand Lift Approach", "Erdtree-Gazing Hill", "Windmill Heights",
			"Outer Wall Battleground", "Minor Erdtree Church", "Sealed Tunnel",
		}},
		"Peaks": {71100, []string{
			"Zamor Ruins", "Ancient Snow Valley", "Freezing Lake",
			"First Church of the Fell God", "Whiteridge Road",
		}},
	}
	for region, g := range graces {
		for i, name := range g.names {
			flags[g.base+i] = Flag_info{name + " discovered", "Sites of Grace", region}
		}
	}

	// NPC state flags.  Each named character gets a met/quest-advanced/dead
	// triple at base, base+1, base+2.  The gaps between bases are real:
	// intermediate IDs exist in the game but are undocumented.
	npcs := map[int]string{
		80000: "Witch of the Mark",
		80010: "Wandering Blacksmith",
		80020: "Half-Wolf Warrior",
		80030: "Tower Sorceress",
		80040: "Pot Merchant",
		80050: "Loathsome Fingerleech",
		80060: "Dung Gatherer",
		80070: "Painted Mask",
		80080: "Snake Hunter",
		80090: "Beast Clergyman",
	}
	for base, who := range npcs {
		flags[base] = Flag_info{who + " met", "NPCs", ""}
		flags[base+1] = Flag_info{who + " quest advanced", "NPCs", "Quest stages"}
		flags[base+2] = Flag_info{who + " dead", "NPCs", ""}
	}

	// Questline completion flags
	quests := []string{
		"Witch of the Mark", "Wandering Blacksmith", "Half-Wolf Warrior",
		"Tower Sorceress", "Painted Mask", "Snake Hunter",
	}
	for i, who := range quests {
		flags[81000+i] = Flag_info{who + " questline completed", "Quests", ""}
	}

	// Misc oddities that don't fit anywhere else
	flags[400] = Flag_info{"Merchant bell obtained", "Misc", ""}
	flags[401] = Flag_info{"Illusory wall at the academy dispelled", "Misc", ""}
	flags[402] = Flag_info{"Invisible assassin revealed", "Misc", ""}

	return flags
}

// Flag_name returns the documented name for a flag, or a placeholder.
func Flag_name(id int) string {
	info, ok := Event_flags[id]
	if !ok {
		return fmt.Sprintf("Unknown (%v)", id)
	}
	return info.Name
}

func Categories() []string {
	return append([]string{}, categories...)
}

func Subcategories(category string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, info := range Event_flags {
		if info.Category == category && info.Subcategory != "" && !seen[info.Subcategory] {
			seen[info.Subcategory] = true
			out = append(out, info.Subcategory)
		}
	}
	sort.Strings(out)
	return out
}

// Category_flags returns the sorted flag IDs in a category.
// An empty subcategory means "the whole category".
func Category_flags(category string, subcategory string) []int {
	out := []int{}
	for id, info := range Event_flags {
		if info.Category != category {
			continue
		}
		if subcategory != "" && info.Subcategory != subcategory {
			continue
		}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Search finds documented flags by ID or by case-insensitive name substring.
func Search(term string) []int {
	term = strings.TrimSpace(term)
	if term == "" {
		return []int{}
	}

	if id, err := strconv.Atoi(term); err == nil {
		if _, ok := Event_flags[id]; ok {
			return []int{id}
		}
		return []int{}
	}

	needle := strings.ToLower(term)
	out := []int{}
	for id, info := range Event_flags {
		if strings.Contains(strings.ToLower(info.Name), needle) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
