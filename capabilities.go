package pipequery

// Capabilities defines which aggregation features are supported by each backend
var Capabilities = map[Backend]map[Feature]bool{
	BackendMongo36: {
		FeatureConvert:    false,
		FeatureTrim:       false,
		FeatureRegexMatch: false,
		FeatureDateFormat: false,
	},
	BackendMongo40: {
		FeatureConvert:    true,
		FeatureTrim:       true,
		FeatureRegexMatch: false,
		FeatureDateFormat: true,
	},
	BackendMongo42: {
		FeatureConvert:    true,
		FeatureTrim:       true,
		FeatureRegexMatch: true,
		FeatureDateFormat: true,
	},
	BackendMongo50: {
		FeatureConvert:    true,
		FeatureTrim:       true,
		FeatureRegexMatch: true,
		FeatureDateFormat: true,
	},
}
