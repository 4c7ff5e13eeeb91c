package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           predictd API
// @version         1.0
// @description     HTTP API for trained model caching and prediction dispatch.
//
// @contact.name   predictd maintainers
// @contact.url    https://github.com/your-org/predictd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
