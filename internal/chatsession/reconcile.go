package chatsession

// AtBottom reports whether p is scrolled within tolerance of its end.
func AtBottom(p Panel, tolerance int) bool {
	return p.ScrollTop() >= p.ScrollHeight()-p.ClientHeight()-tolerance
}

// Reconcile replaces the panel content with entries. A reader who was at
// the bottom is kept there; otherwise the absolute scroll offset is kept.
func Reconcile(p Panel, entries []Entry, tolerance int) {
	if p == nil {
		return
	}

	prev := p.ScrollTop()
	stick := AtBottom(p, tolerance)

	p.Clear()
	if len(entries) == 0 {
		p.ShowEmpty()
		return
	}
	for _, e := range entries {
		p.Append(e)
	}

	if stick {
		p.SetScrollTop(p.ScrollHeight())
	} else {
		p.SetScrollTop(prev)
	}
}
