package main

// General API documentation for swaggo. The generated spec is compiled into
// internal/httpapi with -tags=swagger.
//
// @title           chatbot API
// @version         1.0
// @description     Streaming chat replies from a local language model.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
