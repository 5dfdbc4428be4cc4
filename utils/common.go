package utils

// NODETOL bounds round-off when comparing computed quantities. Mesh
// predicates on file coordinates compare exactly and never use it.
const NODETOL = 1.e-12
