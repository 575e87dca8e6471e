package classify

import "strings"

// Categories is the closed set of product categories the classifier can
// report. CategoryFor maps raw model labels onto it; anything unmapped falls
// through to the custom sentinel.
var Categories = []string{
	"clothing",
	"footwear",
	"accessories",
	"electronics",
	"home",
	"beauty",
	"sports",
	"toys",
}

// categoryTable maps raw classifier output labels to product categories.
// Keys are the label's primary name, lowercased, with synonym suffixes
// stripped. The table is data, not behavior: extending it does not touch the
// aggregation algorithm.
var categoryTable = map[string]string{
	// clothing
	"jersey":          "clothing",
	"sweatshirt":      "clothing",
	"cardigan":        "clothing",
	"suit":            "clothing",
	"jean":            "clothing",
	"miniskirt":       "clothing",
	"gown":            "clothing",
	"kimono":          "clothing",
	"trench coat":     "clothing",
	"fur coat":        "clothing",
	"poncho":          "clothing",
	"brassiere":       "clothing",
	"swimming trunks": "clothing",
	"bikini":          "clothing",
	"maillot":         "clothing",
	"sarong":          "clothing",
	"lab coat":        "clothing",
	"pajama":          "clothing",
	"vestment":        "clothing",
	"abaya":           "clothing",
	"apron":           "clothing",
	"overskirt":       "clothing",
	"hoopskirt":       "clothing",

	// footwear
	"running shoe": "footwear",
	"loafer":       "footwear",
	"sandal":       "footwear",
	"clog":         "footwear",
	"cowboy boot":  "footwear",
	"sock":         "footwear",

	// accessories
	"backpack":      "accessories",
	"wallet":        "accessories",
	"purse":         "accessories",
	"handbag":       "accessories",
	"mailbag":       "accessories",
	"sunglasses":    "accessories",
	"sunglass":      "accessories",
	"necklace":      "accessories",
	"bow tie":       "accessories",
	"windsor tie":   "accessories",
	"sombrero":      "accessories",
	"cowboy hat":    "accessories",
	"bonnet":        "accessories",
	"crash helmet":  "accessories",
	"umbrella":      "accessories",
	"buckle":        "accessories",
	"hair slide":    "accessories",
	"analog clock":  "accessories",
	"digital watch": "accessories",

	// electronics
	"laptop":              "electronics",
	"notebook":            "electronics",
	"desktop computer":    "electronics",
	"hand-held computer":  "electronics",
	"cellular telephone":  "electronics",
	"dial telephone":      "electronics",
	"monitor":             "electronics",
	"screen":              "electronics",
	"television":          "electronics",
	"ipod":                "electronics",
	"printer":             "electronics",
	"mouse":               "electronics",
	"computer keyboard":   "electronics",
	"typewriter keyboard": "electronics",
	"modem":               "electronics",
	"loudspeaker":         "electronics",
	"microphone":          "electronics",
	"radio":               "electronics",
	"remote control":      "electronics",
	"projector":           "electronics",
	"reflex camera":       "electronics",
	"polaroid camera":     "electronics",
	"digital clock":       "electronics",

	// home
	"studio couch":  "home",
	"rocking chair": "home",
	"folding chair": "home",
	"barber chair":  "home",
	"table lamp":    "home",
	"lampshade":     "home",
	"vase":          "home",
	"pillow":        "home",
	"quilt":         "home",
	"wardrobe":      "home",
	"bookcase":      "home",
	"chiffonier":    "home",
	"china cabinet": "home",
	"dining table":  "home",
	"desk":          "home",
	"four-poster":   "home",
	"window shade":  "home",
	"candle":        "home",
	"coffee mug":    "home",
	"cup":           "home",
	"teapot":        "home",
	"pitcher":       "home",
	"coffeepot":     "home",
	"frying pan":    "home",
	"wok":           "home",
	"crock pot":     "home",
	"microwave":     "home",
	"toaster":       "home",
	"refrigerator":  "home",
	"dishwasher":    "home",
	"vacuum":        "home",
	"washer":        "home",

	// beauty
	"lipstick":    "beauty",
	"face powder": "beauty",
	"perfume":     "beauty",
	"lotion":      "beauty",
	"hair spray":  "beauty",
	"sunscreen":   "beauty",

	// sports
	"basketball":     "sports",
	"soccer ball":    "sports",
	"tennis ball":    "sports",
	"volleyball":     "sports",
	"rugby ball":     "sports",
	"baseball":       "sports",
	"golf ball":      "sports",
	"ping-pong ball": "sports",
	"croquet ball":   "sports",
	"dumbbell":       "sports",
	"barbell":        "sports",
	"ski":            "sports",
	"racket":         "sports",
	"punching bag":   "sports",
	"mountain bike":  "sports",
	"tricycle":       "sports",
	"puck":           "sports",
	"snorkel":        "sports",
	"scuba diver":    "sports",

	// toys
	"teddy":         "toys",
	"jigsaw puzzle": "toys",
	"piggy bank":    "toys",
	"balloon":       "toys",
	"carousel":      "toys",
	"swing":         "toys",
	"pinwheel":      "toys",
	"maraca":        "toys",
	"maze":          "toys",
}

// CategoryFor resolves a raw model label to a product category. The label's
// comma-separated synonym suffix is ignored; matching is case-insensitive.
func CategoryFor(label string) (string, bool) {
	cat, ok := categoryTable[strings.ToLower(primaryName(label))]
	return cat, ok
}

// primaryName strips the comma-separated synonym suffix model labels carry,
// e.g. "running shoe, sneaker" becomes "running shoe".
func primaryName(label string) string {
	if i := strings.IndexByte(label, ','); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
