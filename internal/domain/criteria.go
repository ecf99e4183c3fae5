package domain

// Children count buckets accepted by CriteriaSet.ChildrenCount.
const ChildrenCountMore = "more"

// CriteriaSet is the accumulated set of search constraints.
// Zero values are unconstrained, never "empty but required".
type CriteriaSet struct {
	Cities        []string `json:"cities,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	Age           *Range   `json:"age,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	Language      string   `json:"language,omitempty"`
	MaritalStatus string   `json:"marital_status,omitempty"`
	HasChildren   *bool    `json:"has_children,omitempty"`
	ChildrenCount string   `json:"children_count,omitempty"`
	Followers     *Range   `json:"followers,omitempty"`
	BudgetMax     *int     `json:"budget_max,omitempty"`
}
