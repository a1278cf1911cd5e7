package profiler

// performanceScript reads navigation timing relative to navigationStart.
// FCP is 0 when the paint entry is missing.
const performanceScript = `(() => {
	if (!window.performance || !window.performance.timing) {
		return null;
	}
	const timing = window.performance.timing;
	const fcp = window.performance
		.getEntriesByType("paint")
		.find((e) => e.name === "first-contentful-paint");
	return {
		fcp: Math.round(fcp ? fcp.startTime : 0),
		dom_content_loaded: timing.domContentLoadedEventEnd - timing.navigationStart,
		full_load: timing.loadEventEnd - timing.navigationStart,
	};
})()`

// pixelWidthScript measures title and description text with the fonts
// search engines use for result snippets.
const pixelWidthScript = `(() => {
	const titleEl = document.querySelector("title");
	const descriptionEl = document.querySelector('meta[name="description"]');
	if (!titleEl && !descriptionEl) {
		return null;
	}
	const context = document.createElement("canvas").getContext("2d");
	if (!context) {
		return null;
	}
	context.font = "18px Arial";
	const title = titleEl ? context.measureText(titleEl.innerText).width : 0;
	context.font = "13px Arial";
	const description = descriptionEl ? context.measureText(descriptionEl.content || "").width : 0;
	return {
		title: Math.round(title),
		meta_description: Math.round(description),
	};
})()`
