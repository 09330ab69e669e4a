package domains

// ClassifyRedditURL exposes URL classification to tests.
var ClassifyRedditURL = classifyRedditURL
