package agent

// buildBranchPath composes the dotted path of an agent inside its hierarchy
// (manager.researcher). If parent is empty it returns child.
func buildBranchPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
