package domain

// Selection is the configurator state. Options maps each option key to whether it is
// selected; a missing key and false mean the same thing.
type Selection struct {
	Color   ColorKey           `json:"color"`
	Work    WorkKey            `json:"work"`
	Options map[OptionKey]bool `json:"options"`
}

// Selected returns the selected option keys in catalog display order.
func (s Selection) Selected(c *Catalog) []OptionKey {
	var keys []OptionKey
	for _, k := range c.optionOrder {
		if s.Options[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
