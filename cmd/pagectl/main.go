// Command pagectl drives the buddy page allocator from the command line:
// self-tests, memory-map imports, free-list dumps and scripted workloads.
package main

func main() {
	execute()
}
