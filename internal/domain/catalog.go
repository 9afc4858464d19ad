package domain

type WorkKey string

type OptionKey string

type ColorKey string

// Item is a priced catalog entry (a work mode or an add-on option).
type Item struct {
	Key           string `json:"key"`
	LabelJa       string `json:"label_ja"`
	LabelEn       string `json:"label_en"`
	DescriptionJa string `json:"description_ja,omitempty"`
	DescriptionEn string `json:"description_en,omitempty"`
	Price         int64  `json:"price"`
}

type Color struct {
	Key    ColorKey `json:"key"`
	NameJa string   `json:"name_ja"`
	NameEn string   `json:"name_en"`
	Hex    string   `json:"hex"`
}

// Catalog is the static price list. It is built once at startup and never mutated;
// accessors hand out copies.
type Catalog struct {
	base        int64
	works       map[WorkKey]Item
	workOrder   []WorkKey
	options     map[OptionKey]Item
	optionOrder []OptionKey
	colors      []Color
}

func NewCatalog(base int64, works []Item, options []Item, colors []Color) *Catalog {
	c := &Catalog{
		base:    base,
		works:   make(map[WorkKey]Item, len(works)),
		options: make(map[OptionKey]Item, len(options)),
		colors:  append([]Color(nil), colors...),
	}
	for _, w := range works {
		c.works[WorkKey(w.Key)] = w
		c.workOrder = append(c.workOrder, WorkKey(w.Key))
	}
	for _, o := range options {
		c.options[OptionKey(o.Key)] = o
		c.optionOrder = append(c.optionOrder, OptionKey(o.Key))
	}
	return c
}

// DefaultCatalog returns the provisional price list of the configurator (JPY, excl. tax).
func DefaultCatalog() *Catalog {
	return NewCatalog(1_000_000,
		[]Item{
			{Key: "mowing", LabelJa: "草刈り", LabelEn: "Mowing", Price: 200_000,
				DescriptionJa: "法面・通路などの草刈りを自動化。", DescriptionEn: "Automate mowing on slopes and lanes."},
			{Key: "spray", LabelJa: "散布", LabelEn: "Spray", Price: 250_000,
				DescriptionJa: "液剤散布（肥料・活力剤等）に対応。", DescriptionEn: "Liquid spraying for fertilizers etc."},
			{Key: "herbicide", LabelJa: "除草剤散布", LabelEn: "Herbicide", Price: 300_000,
				DescriptionJa: "除草剤の安全散布に特化。", DescriptionEn: "Specialized in herbicide spraying."},
		},
		[]Item{
			{Key: "camera", LabelJa: "見守りカメラ", LabelEn: "Monitoring camera", Price: 80_000,
				DescriptionJa: "遠隔で様子を確認", DescriptionEn: "Remote monitoring"},
			{Key: "tag", LabelJa: "タグ誘導セット", LabelEn: "Tag guidance set", Price: 120_000,
				DescriptionJa: "タグでルート誘導", DescriptionEn: "Tag-based guidance"},
			{Key: "support", LabelJa: "リモートサポート", LabelEn: "Remote support", Price: 60_000,
				DescriptionJa: "導入後の保守を強化", DescriptionEn: "Post-install support"},
		},
		[]Color{
			{Key: "leaf", NameJa: "リーフ", NameEn: "Leaf", Hex: "#c9da2a"},
			{Key: "gray", NameJa: "グレー", NameEn: "Gray", Hex: "#6e6e6e"},
		},
	)
}

func (c *Catalog) Base() int64 {
	return c.base
}

func (c *Catalog) Work(key WorkKey) (Item, bool) {
	w, ok := c.works[key]
	return w, ok
}

func (c *Catalog) Option(key OptionKey) (Item, bool) {
	o, ok := c.options[key]
	return o, ok
}

func (c *Catalog) HasColor(key ColorKey) bool {
	for _, col := range c.colors {
		if col.Key == key {
			return true
		}
	}
	return false
}

// Works returns the work modes in display order.
func (c *Catalog) Works() []Item {
	out := make([]Item, 0, len(c.workOrder))
	for _, k := range c.workOrder {
		out = append(out, c.works[k])
	}
	return out
}

// Options returns the add-on options in display order.
func (c *Catalog) Options() []Item {
	out := make([]Item, 0, len(c.optionOrder))
	for _, k := range c.optionOrder {
		out = append(out, c.options[k])
	}
	return out
}

func (c *Catalog) Colors() []Color {
	return append([]Color(nil), c.colors...)
}
