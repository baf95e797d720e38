// Package budget records planned and actual project costs and derives
// earned-value figures from them.
//
// All amounts are integer cents. Labour cost is not stored as budget items;
// it is computed from approved time entries at each user's hourly rate.
package budget
