package layout

type cache struct {
	byType map[string]TypeLayout
}

func newCache() *cache {
	return &cache{byType: make(map[string]TypeLayout, 64)}
}

func (c *cache) get(key string) (TypeLayout, bool) {
	if c == nil {
		return TypeLayout{}, false
	}
	l, ok := c.byType[key]
	return l, ok
}

func (c *cache) put(key string, l *TypeLayout) {
	if c == nil {
		return
	}
	if l == nil {
		delete(c.byType, key)
		return
	}
	c.byType[key] = *l
}
