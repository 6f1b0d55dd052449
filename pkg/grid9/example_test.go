package grid9_test

import (
	"fmt"

	"github.com/1F47E/grid9/pkg/grid9"
)

func ExampleEncode() {
	code, _ := grid9.Encode(40.7128, -74.0060, false)
	readable, _ := grid9.Encode(40.7128, -74.0060, true)
	fmt.Println(code)
	fmt.Println(readable)
	// Output:
	// Q7KH2BBYE
	// Q7K-H2B-BYE
}

func ExampleDecode() {
	lat, lon, _ := grid9.Decode("Q7K-H2B-BYE")
	fmt.Printf("%.4f, %.4f\n", lat, lon)
	// Output: 40.7128, -74.0060
}

func ExampleCalculateDistance() {
	nyc, _ := grid9.Encode(40.7128, -74.0060, false)
	london, _ := grid9.Encode(51.5074, -0.1278, false)
	dist, _ := grid9.CalculateDistance(nyc, london)
	fmt.Printf("%.0f km\n", dist/1000)
	// Output: 5570 km
}

func ExampleIsValidEncoding() {
	fmt.Println(grid9.IsValidEncoding("Q7K-H2B-BYF"))
	fmt.Println(grid9.IsValidEncoding("INVALID!"))
	// Output:
	// true
	// false
}
