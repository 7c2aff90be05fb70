package segment

// builtinWords is the base dictionary: common question words, shopping and
// policy vocabulary for the catalog assistant domain. Catalog-specific
// vocabulary (product names, categories, keywords) is merged in at index
// build time via NewSegmenter.
var builtinWords = []string{
	// Question / chat words
	"你好", "谢谢", "请问", "多少钱", "多少", "什么", "哪些", "怎么", "如何",
	"可以", "有没有", "是不是", "为什么", "帮我", "想要", "需要",

	// Product inquiry vocabulary
	"价格", "价钱", "便宜", "优惠", "打折", "购买", "下单", "规格",
	"库存", "现货", "产品", "商品", "水果", "蔬菜", "新鲜", "推荐",
	"单价", "一斤", "一箱", "包装",

	// Policy inquiry vocabulary
	"配送", "送货", "发货", "快递", "物流", "运费", "几点", "时间",
	"退货", "退款", "换货", "售后", "发票", "营业", "政策", "规定",
	"范围", "地址", "上门", "自提",
}
