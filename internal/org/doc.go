// Package org holds the department model that groups users and projects.
//
// Departments drive project scoping: a manager assigned to a department sees
// every project filed under it.
package org
