// Package plan turns fetch requests into ordered request specifications.
//
// Two planning modes exist:
//
//   - PlanByIDs produces one RequestSpec per identifier, in input order.
//   - Listing produces page specs lazily; the next pages are planned only
//     after earlier page responses have been observed, because the total
//     item count is unknown until the server reveals it (X-Total-Count
//     header) or a short page signals the end of data.
//
// Every RequestSpec carries a fixed Index. The index is the position of the
// request's result in the final output, whatever order the network completes in.
//
// Example usage:
//
//	planner, _ := plan.NewPlanner("https://api.aiod.eu", resource.Default())
//	specs, err := planner.PlanByIDs("datasets", []string{"1", "2"}, resource.FormatJSON)
//
//	listing, err := planner.Listing("datasets", plan.ListOptions{PageSize: 100})
//	for !listing.Done() {
//		wave := listing.Next(10)
//		// execute wave, then listing.Observe(...) for every page response
//	}
package plan
