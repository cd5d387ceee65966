package catalog

import (
	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/shopspring/decimal"
)

func localProduct(id int64, title, price, description, category, image string, rate float64, count int) d.Product {
	return d.Product{
		ID:          d.IDFromInt(id),
		Title:       title,
		Price:       decimal.RequireFromString(price),
		Description: description,
		Category:    category,
		Image:       image,
		Rating:      &d.Rating{Rate: rate, Count: count},
	}
}

// localProducts extend the upstream catalog with clothing and jewelery items.
var localProducts = []d.Product{
	localProduct(101, "Women's Black Casual Skirt", "45.99",
		"Elegant black casual skirt perfect for everyday wear. Made from breathable cotton fabric with comfortable fit.",
		"women's clothing", "https://fakestoreapi.com/img/51eg55uWmdL._AC_UX679_.jpg", 4.5, 128),
	localProduct(102, "Women's Blue Denim Skirt", "52.99",
		"Stylish blue denim skirt with classic design. Perfect for casual outings and weekend wear.",
		"women's clothing", "https://fakestoreapi.com/img/71HblAHs5xL._AC_UY879_-2.jpg", 4.3, 95),
	localProduct(103, "Women's Floral Midi Dress", "62.99",
		"Beautiful floral print midi dress perfect for summer. Comfortable and stylish for any occasion.",
		"women's clothing", "https://encrypted-tbn2.gstatic.com/shopping?q=tbn:ANd9GcSruXXrCxWZytMCl3JnXuND1wBNwtp6aK9g-S3Hd041EAtb5HrJFVvmLinYRUKO9uyI7M3NVm0qVOTvnp9zMaZ3VzSfFw1eUqM9nRtSDffqCw1w-pP6_8BoWg", 4.7, 210),
	localProduct(104, "Women's Red Evening Dress", "89.99",
		"Elegant red evening dress perfect for special occasions. Premium fabric with flattering silhouette.",
		"women's clothing", "https://adn-static1.nykaa.com/nykdesignstudio-images/pub/media/catalog/product/f/b/fb5755bCD20241105574380LDRed_1.jpg?rnd=20200526195200&tr=w-1080", 4.8, 156),
	localProduct(105, "Men's Formal White Shirt", "49.99",
		"Classic white formal shirt for office and special occasions. High quality cotton fabric.",
		"men's clothing", "https://fakestoreapi.com/img/71li-ujtlUL._AC_UX679_.jpg", 4.4, 187),
	localProduct(106, "Men's Blue Casual Shirt", "39.99",
		"Comfortable blue casual shirt for everyday wear. Perfect for casual office or weekend.",
		"men's clothing", "https://fakestoreapi.com/img/71YXzeOuslL._AC_UY879_.jpg", 4.2, 143),
	localProduct(107, "Women's Gold Pendant Necklace", "35.99",
		"Elegant gold pendant necklace with delicate chain. Perfect gift for any occasion.",
		"jewelery", "https://fakestoreapi.com/img/71pWzhdJNwL._AC_UL640_QL65_ML3_.jpg", 4.6, 98),
	localProduct(108, "Women's Silver Ring", "28.99",
		"Beautiful silver ring with modern design. Adjustable fit for comfortable wear.",
		"jewelery", "https://fakestoreapi.com/img/61sbMiUnoGL._AC_UL640_QL65_ML3_.jpg", 4.5, 76),
	localProduct(109, "Women's Gold Bracelet", "42.99",
		"Stylish gold bracelet with elegant design. Perfect for both casual and formal wear.",
		"jewelery", "https://fakestoreapi.com/img/71YAIFU48IL._AC_UL640_QL65_ML3_.jpg", 4.7, 112),
}

// LocalProducts returns a copy of the built-in catalog.
func LocalProducts() []d.Product {
	out := make([]d.Product, len(localProducts))
	copy(out, localProducts)
	return out
}

func localByID(id d.ID) (d.Product, bool) {
	for _, p := range localProducts {
		if p.ID == id {
			return p, true
		}
	}
	return d.Product{}, false
}

// merge appends local products whose id is not already served upstream.
func merge(upstream []d.Product) []d.Product {
	seen := make(map[d.ID]struct{}, len(upstream))
	out := make([]d.Product, 0, len(upstream)+len(localProducts))
	for _, p := range upstream {
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	for _, p := range localProducts {
		if _, ok := seen[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
