package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	UserPalette: append([]string(nil), UserColorPalette...),
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Message: MessageColors{
		Own:    "81",
		Other:  "147",
		Notice: "214",
		Error:  "203",
		Link:   "39",
	},
	Connection: ConnectionColors{
		Online:     "41",
		Connecting: "220",
		Offline:    "243",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Divider:      "242",
	},
}
