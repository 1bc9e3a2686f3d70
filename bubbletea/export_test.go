package bubbletea

// BlockSeparator exports blockSeparator for testing.
func BlockSeparator(prev, curr MessageBlock) string {
	return blockSeparator(prev, curr)
}

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// RenderPanel exports renderPanel for testing.
var RenderPanel = renderPanel

// Clip exports clip for testing.
var Clip = clip

// PanelWidth exports panelWidth for testing.
var PanelWidth = panelWidth
