// Package asset tracks equipment and licences that can be assigned to
// people and projects.
package asset
