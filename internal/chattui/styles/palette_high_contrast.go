package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Message: MessageColors{
		Own:    "87",
		Other:  "225",
		Notice: "229",
		Error:  "196",
		Link:   "51",
	},
	Connection: ConnectionColors{
		Online:     "46",
		Connecting: "226",
		Offline:    "244",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		SelectedItem: "51",
		Divider:      "250",
	},
}
