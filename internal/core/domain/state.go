package domain

// BootstrapState is the progress of a single role through the bootstrap.
// There is no failed state: a fatal condition aborts the process instead.
type BootstrapState int

const (
	StateUninitialized BootstrapState = iota
	StateStoreCreated
	StateAuthorityMaterialPresent
	StateOwnCertificateIssued
	StateValidated
)

var stateNames = map[BootstrapState]string{
	StateUninitialized:            "Uninitialized",
	StateStoreCreated:             "StoreCreated",
	StateAuthorityMaterialPresent: "AuthorityMaterialPresent",
	StateOwnCertificateIssued:     "OwnCertificateIssued",
	StateValidated:                "Validated",
}

func (s BootstrapState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Next returns the state reached by completing the step that follows s.
func (s BootstrapState) Next() BootstrapState {
	if s >= StateValidated {
		return StateValidated
	}
	return s + 1
}
